package displaylogic

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/red1oon/ADUI/pkg/schema"
)

func equalsY(fieldID, rule string, ctx Context) (bool, error) {
	switch rule {
	case "broken":
		return false, errors.New("syntax error")
	case "damage":
		return ctx.Values["damage"] == true, nil
	default:
		return false, nil
	}
}

func TestVisible(t *testing.T) {
	record := schema.NewRecord("INSPECTION")
	record.Set("damage", true, "Y")
	eval := EvaluatorFunc(equalsY)

	cases := []struct {
		name  string
		field schema.FieldDefinition
		eval  Evaluator
		want  bool
	}{
		{name: "no rule", field: schema.FieldDefinition{ID: "a", Displayed: true}, eval: eval, want: true},
		{name: "not displayed", field: schema.FieldDefinition{ID: "a", Displayed: false}, eval: eval, want: false},
		{name: "rule holds", field: schema.FieldDefinition{ID: "a", Displayed: true, DisplayLogic: "damage"}, eval: eval, want: true},
		{name: "rule fails", field: schema.FieldDefinition{ID: "a", Displayed: true, DisplayLogic: "other"}, eval: eval, want: false},
		{name: "eval error", field: schema.FieldDefinition{ID: "a", Displayed: true, DisplayLogic: "broken"}, eval: eval, want: true},
		{name: "nil evaluator", field: schema.FieldDefinition{ID: "a", Displayed: true, DisplayLogic: "other"}, eval: nil, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Visible(tc.field, record, tc.eval); got != tc.want {
				t.Fatalf("Visible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVisibleFields_PreservesOrder(t *testing.T) {
	tab := schema.TabDefinition{
		ID: "main",
		Fields: []schema.FieldDefinition{
			{ID: "first", Displayed: true},
			{ID: "notes", Displayed: true, DisplayLogic: "damage"},
			{ID: "last", Displayed: true},
		},
	}
	record := schema.NewRecord("INSPECTION")

	ids := func(fields []schema.FieldDefinition) []string {
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			out = append(out, f.ID)
		}
		return out
	}

	if diff := cmp.Diff([]string{"first", "last"}, ids(VisibleFields(tab, record, EvaluatorFunc(equalsY)))); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}
	record.Set("damage", true, "")
	if diff := cmp.Diff([]string{"first", "notes", "last"}, ids(VisibleFields(tab, record, EvaluatorFunc(equalsY)))); diff != "" {
		t.Fatalf("shown mismatch (-want +got):\n%s", diff)
	}
}
