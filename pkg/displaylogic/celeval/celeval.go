// Package celeval evaluates display logic written in the Common Expression
// Language. Rules see two variables: `values` (the record's raw values) and
// `extras` (caller supplied facts), e.g. `values.damage == true`.
package celeval

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/red1oon/ADUI/pkg/displaylogic"
)

// Evaluator compiles each distinct rule once and caches the program.
type Evaluator struct {
	env      *cel.Env
	programs sync.Map
}

// New builds the CEL environment.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("values", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("extras", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("displaylogic/celeval: environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Eval compiles rule (cached) and runs it. Non-boolean results are errors.
func (e *Evaluator) Eval(fieldID, rule string, ctx displaylogic.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return true, nil
	}
	program, err := e.program(rule)
	if err != nil {
		return false, fmt.Errorf("displaylogic/celeval: field %s: %w", fieldID, err)
	}

	out, _, err := program.Eval(map[string]any{
		"values": orEmpty(ctx.Values),
		"extras": orEmpty(ctx.Extras),
	})
	if err != nil {
		return false, fmt.Errorf("displaylogic/celeval: field %s: %w", fieldID, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("displaylogic/celeval: field %s: rule returned %T, want bool", fieldID, out.Value())
	}
	return result, nil
}

func (e *Evaluator) program(rule string) (cel.Program, error) {
	if cached, ok := e.programs.Load(rule); ok {
		return cached.(cel.Program), nil
	}
	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast == nil {
		return nil, errors.New("compile produced no ast")
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.programs.Store(rule, program)
	return program, nil
}

func orEmpty(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}
	return values
}
