// Package validation checks window documents before import and filled
// records before they are saved, reporting every problem found rather than
// stopping at the first.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/red1oon/ADUI/pkg/adapter"
	"github.com/red1oon/ADUI/pkg/provider"
)

// Issue is one validation problem. Path locates it in the document
// ("tabs[1].fields[0]"); Field names the canonical field id when known.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result aggregates the issues of one validation run.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

func (r *Result) add(issue Issue) {
	r.Valid = false
	r.Issues = append(r.Issues, issue)
}

// Err folds the issues into a single error, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		switch {
		case issue.Field != "":
			msgs = append(msgs, issue.Field+": "+issue.Message)
		case issue.Path != "":
			msgs = append(msgs, issue.Path+": "+issue.Message)
		default:
			msgs = append(msgs, issue.Message)
		}
	}
	return fmt.Errorf("validation: %s", strings.Join(msgs, "; "))
}

// Structure checks the shape an import requires: a window id (explicit or
// derivable), a name and a non-empty tabs array whose entries each have an
// id and a fields array. Every failing tab is reported.
func Structure(payload map[string]any) error {
	var problems []string
	if id, _ := adapter.ResolveWindowID(payload); id == "" {
		problems = append(problems, "window has no windowId, id or name")
	}
	if name, _ := payload["name"].(string); strings.TrimSpace(name) == "" {
		problems = append(problems, "window name is missing")
	}
	rawTabs, ok := payload["tabs"].([]any)
	switch {
	case !ok:
		problems = append(problems, "tabs array is missing")
	case len(rawTabs) == 0:
		problems = append(problems, "tabs array is empty")
	}
	for idx, rawTab := range rawTabs {
		tab, ok := rawTab.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("tab[%d] is not an object", idx))
			continue
		}
		if adapter.ResolveTabID(tab) == "" {
			problems = append(problems, fmt.Sprintf("tab[%d] has no tabId, id or name", idx))
		}
		if _, ok := tab["fields"].([]any); !ok {
			problems = append(problems, fmt.Sprintf("tab[%d] fields array is missing", idx))
		}
	}
	if len(problems) > 0 {
		return &provider.StructuralValidationError{Problems: problems}
	}
	return nil
}

// Document parses, structurally checks and adapts raw without storing
// anything. A nil adapter uses the defaults.
func Document(ctx context.Context, raw []byte, a *adapter.Adapter) Result {
	result := Result{Valid: true}
	payload, err := adapter.ParseDocument(raw)
	if err != nil {
		result.add(issueFromError(err))
		return result
	}
	if err := Structure(payload); err != nil {
		var structural *provider.StructuralValidationError
		if !errors.As(err, &structural) {
			result.add(issueFromError(err))
			return result
		}
		for _, problem := range structural.Problems {
			result.add(Issue{Path: pathFromProblem(problem), Message: problem})
		}
		return result
	}
	if a == nil {
		a = adapter.New()
	}
	if _, err := a.AdaptMap(ctx, payload, ""); err != nil {
		result.add(issueFromError(err))
	}
	return result
}

func issueFromError(err error) Issue {
	if err == nil {
		return Issue{Message: "unknown error"}
	}
	var adaptErr *adapter.AdaptationError
	if errors.As(err, &adaptErr) {
		return Issue{Path: indexPath(adaptErr.TabIndex, adaptErr.FieldIndex), Message: adaptErr.Reason}
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "adapter: ")
	msg = strings.TrimPrefix(msg, "provider: ")
	return Issue{Message: msg}
}

func indexPath(tab, field int) string {
	switch {
	case tab < 0:
		return ""
	case field < 0:
		return fmt.Sprintf("tabs[%d]", tab)
	default:
		return fmt.Sprintf("tabs[%d].fields[%d]", tab, field)
	}
}

// pathFromProblem turns the "tab[N] ..." prefix of a structural problem into
// a document path.
func pathFromProblem(problem string) string {
	var idx int
	if _, err := fmt.Sscanf(problem, "tab[%d]", &idx); err == nil {
		return indexPath(idx, -1)
	}
	if strings.HasPrefix(problem, "tabs ") {
		return "tabs"
	}
	return ""
}
