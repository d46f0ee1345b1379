// Package displaylogic decides whether a field is shown for the values already
// entered on a record. Rules are data, parsed by an Evaluator; nothing here
// executes host code.
package displaylogic

import (
	"log/slog"

	"github.com/red1oon/ADUI/pkg/schema"
)

// Evaluator reports whether the rule attached to fieldID holds for ctx.
type Evaluator interface {
	Eval(fieldID, rule string, ctx Context) (bool, error)
}

// Context is the input to an Evaluator. Values maps field ids to raw record
// values; Extras carries caller supplied facts such as the active user.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldID, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldID, rule string, ctx Context) (bool, error) {
	return fn(fieldID, rule, ctx)
}

// ContextFromRecord builds a Context from the record's raw values.
func ContextFromRecord(record schema.FormDataRecord) Context {
	return Context{Values: record.RawValues()}
}

// Visible reports whether field should be shown. A field flagged as not
// displayed is always hidden. An empty rule or nil evaluator means visible.
// When evaluation fails the field falls back to its Displayed flag.
func Visible(field schema.FieldDefinition, record schema.FormDataRecord, evaluator Evaluator) bool {
	return VisibleWith(field, ContextFromRecord(record), evaluator, nil)
}

// VisibleWith is Visible with a prepared context. Evaluation failures are
// logged at debug level when logger is non-nil.
func VisibleWith(field schema.FieldDefinition, ctx Context, evaluator Evaluator, logger *slog.Logger) bool {
	if !field.Displayed {
		return false
	}
	if field.DisplayLogic == "" || evaluator == nil {
		return true
	}
	ok, err := evaluator.Eval(field.ID, field.DisplayLogic, ctx)
	if err != nil {
		if logger != nil {
			logger.Debug("display logic failed, using displayed flag",
				"field_id", field.ID,
				"rule", field.DisplayLogic,
				"error", err,
			)
		}
		return field.Displayed
	}
	return ok
}

// VisibleFields filters a tab's fields down to those visible for record,
// preserving order.
func VisibleFields(tab schema.TabDefinition, record schema.FormDataRecord, evaluator Evaluator) []schema.FieldDefinition {
	ctx := ContextFromRecord(record)
	out := make([]schema.FieldDefinition, 0, len(tab.Fields))
	for _, field := range tab.Fields {
		if VisibleWith(field, ctx, evaluator, nil) {
			out = append(out, field)
		}
	}
	return out
}
