package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/red1oon/ADUI/pkg/displaylogic"
	"github.com/red1oon/ADUI/pkg/schema"
)

// Record checks record against window. Hidden fields (display logic or the
// displayed flag) are not required; values for fields the window does not
// declare are reported.
func Record(window schema.WindowDefinition, record schema.FormDataRecord, evaluator displaylogic.Evaluator) Result {
	result := Result{Valid: true}
	if record.WindowID != "" && record.WindowID != window.ID {
		result.add(Issue{Message: fmt.Sprintf("record belongs to window %q, not %q", record.WindowID, window.ID)})
	}
	if !record.Metadata.Status.Valid() && record.Metadata.Status != "" {
		result.add(Issue{Message: fmt.Sprintf("unknown status %q", record.Metadata.Status)})
	}

	ctx := displaylogic.ContextFromRecord(record)
	known := make(map[string]struct{})
	for tabIdx, tab := range window.Tabs {
		for fieldIdx, field := range tab.Fields {
			known[field.ID] = struct{}{}
			if !displaylogic.VisibleWith(field, ctx, evaluator, nil) {
				continue
			}
			value, present := record.Values[field.ID]
			path := indexPath(tabIdx, fieldIdx)
			if !present || isEmpty(value.Raw) {
				if field.Mandatory && !field.ReadOnly {
					result.add(Issue{Path: path, Field: field.ID, Message: "required"})
				}
				continue
			}
			if msg := checkValue(field, value.Raw); msg != "" {
				result.add(Issue{Path: path, Field: field.ID, Message: msg})
			}
		}
	}

	var unknown []string
	for id := range record.Values {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		result.add(Issue{Field: id, Message: "not declared by the window"})
	}
	return result
}

func checkValue(field schema.FieldDefinition, raw any) string {
	switch field.DisplayType {
	case schema.DisplayTypeString, schema.DisplayTypeText, schema.DisplayTypeQRCode, schema.DisplayTypeCamera:
		str, ok := raw.(string)
		if !ok {
			return fmt.Sprintf("expected text, got %T", raw)
		}
		if field.FieldLength > 0 && utf8.RuneCountInString(str) > field.FieldLength {
			return fmt.Sprintf("longer than %d characters", field.FieldLength)
		}
	case schema.DisplayTypeInteger:
		if !isInteger(raw) {
			return fmt.Sprintf("expected a whole number, got %v", raw)
		}
	case schema.DisplayTypeYesNo:
		if _, ok := raw.(bool); !ok {
			return fmt.Sprintf("expected yes/no, got %v", raw)
		}
	case schema.DisplayTypeList:
		if field.Reference == nil || len(field.Reference.Values) == 0 {
			return ""
		}
		key := fmt.Sprint(raw)
		for _, value := range field.Reference.Values {
			if value.Key == key {
				return ""
			}
		}
		return fmt.Sprintf("%q is not one of the allowed values", key)
	case schema.DisplayTypeMultiPhoto, schema.DisplayTypeQRCollector:
		count, ok := listLen(raw)
		if !ok {
			return fmt.Sprintf("expected a list, got %T", raw)
		}
		limitKey := "maxItems"
		if field.DisplayType == schema.DisplayTypeMultiPhoto {
			limitKey = "maxPhotos"
			if minimum := toInt(field.Data["minPhotos"]); count < minimum {
				return fmt.Sprintf("at least %d required", minimum)
			}
		}
		if limit := toInt(field.Data[limitKey]); limit > 0 && count > limit {
			return fmt.Sprintf("at most %d allowed", limit)
		}
	case schema.DisplayTypeQRChecklist, schema.DisplayTypeFlippableQRChecklist, schema.DisplayTypeTaskList:
		if _, ok := listLen(raw); !ok {
			return fmt.Sprintf("expected a list, got %T", raw)
		}
	}
	return ""
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		if n, ok := listLen(raw); ok {
			return n == 0
		}
		return false
	}
}

func isInteger(raw any) bool {
	switch v := raw.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == float64(int64(v))
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil
	default:
		return false
	}
}

func listLen(raw any) (int, bool) {
	switch v := raw.(type) {
	case []string:
		return len(v), true
	case []any:
		return len(v), true
	default:
		return 0, false
	}
}

func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
