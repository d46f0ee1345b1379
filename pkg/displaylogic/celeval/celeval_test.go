package celeval

import (
	"testing"

	"github.com/red1oon/ADUI/pkg/displaylogic"
	"github.com/red1oon/ADUI/pkg/schema"
)

func TestEvaluator_Rules(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := displaylogic.Context{
		Values: map[string]any{"damage": true, "count": int64(4), "status": "CO"},
		Extras: map[string]any{"role": "admin"},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{"", true},
		{"values.damage == true", true},
		{"values.count > 3 && values.status == 'CO'", true},
		{"'notes' in values", false},
		{"extras.role == 'guest'", false},
	}
	for _, tc := range cases {
		got, err := eval.Eval("field", tc.rule, ctx)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestEvaluator_Errors(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, rule := range []string{"values.damage ==", "values.status", "unknown_var == 1"} {
		if _, err := eval.Eval("field", rule, displaylogic.Context{Values: map[string]any{"status": "CO"}}); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}

func TestEvaluator_FallsBackToDisplayedOnError(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	field := schema.FieldDefinition{ID: "notes", Displayed: true, DisplayLogic: "values.missing == true"}
	if !displaylogic.Visible(field, schema.NewRecord("INSPECTION"), eval) {
		t.Fatalf("missing key errors, so the displayed flag should win")
	}
}
