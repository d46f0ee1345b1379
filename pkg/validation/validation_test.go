package validation

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/displaylogic/expr"
	"github.com/red1oon/ADUI/pkg/schema"
	"github.com/red1oon/ADUI/pkg/testsupport"
)

func inspectionWindow(t *testing.T) schema.WindowDefinition {
	t.Helper()
	raw := testsupport.MustReadFixture(t, "inspection.json")
	result, err := adapter.New(adapter.WithDisplayLogic(true)).Adapt(context.Background(), raw)
	if err != nil {
		t.Fatalf("adapt fixture: %v", err)
	}
	return result.Window
}

func TestRecord_Valid(t *testing.T) {
	window := inspectionWindow(t)
	record := schema.NewRecord(window.ID)
	record.Set("plate", "AB12 CDE", "")
	record.Set("depot", "LHR", "")
	record.Set("tyres", "ok", "")
	record.Set("damage", false, "No")
	record.Set("photos", []string{"front.jpg", "rear.jpg"}, "")
	record.Set("mileage", int64(42100), "")

	result := Record(window, record, expr.New())
	if !result.Valid {
		t.Fatalf("expected valid record, got issues %+v", result.Issues)
	}
	if err := result.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestRecord_ReportsEveryIssue(t *testing.T) {
	window := inspectionWindow(t)
	record := schema.NewRecord(window.ID)
	record.Set("plate", "THIS PLATE IS TOO LONG", "")
	record.Set("tyres", "bald", "")
	record.Set("damage", "maybe", "")
	record.Set("mileage", "forty", "")
	record.Set("photos", []string{"1", "2", "3", "4", "5", "6"}, "")
	record.Set("colour", "red", "")

	result := Record(window, record, expr.New())
	if result.Valid {
		t.Fatal("expected invalid record")
	}

	want := []Issue{
		{Path: "tabs[0].fields[0]", Field: "plate", Message: "longer than 10 characters"},
		{Path: "tabs[0].fields[2]", Field: "tyres", Message: `"bald" is not one of the allowed values`},
		{Path: "tabs[0].fields[3]", Field: "damage", Message: "expected yes/no, got maybe"},
		{Path: "tabs[1].fields[0]", Field: "photos", Message: "at most 5 allowed"},
		{Path: "tabs[1].fields[1]", Field: "mileage", Message: "expected a whole number, got forty"},
		{Field: "colour", Message: "not declared by the window"},
	}
	if diff := cmp.Diff(want, result.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_HiddenFieldsAreNotRequired(t *testing.T) {
	window := inspectionWindow(t)
	for ti := range window.Tabs {
		for fi := range window.Tabs[ti].Fields {
			if window.Tabs[ti].Fields[fi].ID == "damage_notes" {
				window.Tabs[ti].Fields[fi].Mandatory = true
			}
		}
	}

	record := schema.NewRecord(window.ID)
	record.Set("plate", "AB12", "")
	record.Set("damage", false, "")
	if result := Record(window, record, expr.New()); !result.Valid {
		t.Fatalf("hidden notes should not be required, got %+v", result.Issues)
	}

	record.Set("damage", true, "")
	result := Record(window, record, expr.New())
	want := []Issue{{Path: "tabs[0].fields[4]", Field: "damage_notes", Message: "required"}}
	if diff := cmp.Diff(want, result.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_MissingMandatoryAndWrongWindow(t *testing.T) {
	window := inspectionWindow(t)
	record := schema.NewRecord("OTHER")

	result := Record(window, record, nil)
	if result.Valid {
		t.Fatal("expected invalid record")
	}
	err := result.Err()
	if err == nil {
		t.Fatal("expected folded error")
	}
	for _, fragment := range []string{`record belongs to window "OTHER"`, "plate: required"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err, fragment)
		}
	}
}

func TestDocument(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Issue
	}{
		{
			name: "valid fixture",
			raw:  string(testsupport.MustReadFixture(t, "inspection.json")),
		},
		{
			name: "malformed json",
			raw:  `{"windowId": `,
		},
		{
			name: "structural problems",
			raw:  `{"windowId":"W","tabs":[{"name":"A"},"x"]}`,
			want: []Issue{
				{Message: "window name is missing"},
				{Path: "tabs[0]", Message: "tab[0] fields array is missing"},
				{Path: "tabs[1]", Message: "tab[1] is not an object"},
			},
		},
		{
			name: "field without id",
			raw:  `{"windowId":"W","name":"W","tabs":[{"tabId":"t","fields":[{"name":"","component":"text"}]}]}`,
			want: []Issue{{Path: "tabs[0].fields[0]", Message: "field id is missing"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Document(context.Background(), []byte(tt.raw), nil)
			switch {
			case tt.name == "valid fixture":
				if !result.Valid {
					t.Fatalf("expected valid, got %+v", result.Issues)
				}
			case tt.want == nil:
				if result.Valid || len(result.Issues) != 1 {
					t.Fatalf("expected a single parse issue, got %+v", result)
				}
			default:
				if result.Valid {
					t.Fatal("expected invalid document")
				}
				if diff := cmp.Diff(tt.want, result.Issues); diff != "" {
					t.Fatalf("issues mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}
