package adapter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ParseDocument decodes raw bytes into the generic map form the adapter
// walks. Non-object payloads are rejected. Integers come back as int64 so
// numeric ids keep every digit; other numbers are float64.
func ParseDocument(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, &ParseError{Err: err}
	}
	if dec.More() {
		return nil, &ParseError{Err: fmt.Errorf("unexpected data after document")}
	}
	if payload == nil {
		return nil, &ParseError{Err: fmt.Errorf("document is null")}
	}
	return plainNumbers(payload).(map[string]any), nil
}

// plainNumbers replaces json.Number leaves with int64 or float64. Integers
// beyond int64 stay json.Number.
func plainNumbers(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			typed[key] = plainNumbers(child)
		}
		return typed
	case []any:
		for i, child := range typed {
			typed[i] = plainNumbers(child)
		}
		return typed
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return n
		}
		if !strings.ContainsAny(typed.String(), ".eE") {
			return typed
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed
	default:
		return value
	}
}

// ResolveWindowID applies the window id fallback chain: explicit windowId,
// then id, then a slug of the name. The second return reports which tier
// produced the id ("windowId", "id", "name") or "" when none applied.
func ResolveWindowID(payload map[string]any) (string, string) {
	if id := readID(payload, "windowId"); id != "" {
		return id, "windowId"
	}
	if id := readID(payload, "id"); id != "" {
		return id, "id"
	}
	if slug := Slug(readString(payload, "name")); slug != "" {
		return slug, "name"
	}
	return "", ""
}

// Slug upper-cases the trimmed name and replaces every character outside
// [A-Z0-9] with an underscore: "Site Audit" becomes "SITE_AUDIT".
func Slug(name string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range trimmed {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// ResolveTabID mirrors ResolveWindowID for tabs: tabId, then id, then a slug
// of the name.
func ResolveTabID(payload map[string]any) string {
	if id := readID(payload, "tabId"); id != "" {
		return id
	}
	if id := readID(payload, "id"); id != "" {
		return id
	}
	return Slug(readString(payload, "name"))
}

func resolveFieldID(payload map[string]any) string {
	if id := readID(payload, "fieldId"); id != "" {
		return id
	}
	return readID(payload, "id")
}

func readString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok {
		return ""
	}
	str, ok := value.(string)
	if !ok {
		return ""
	}
	return str
}

// readID accepts string or numeric identifiers.
func readID(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	switch value := payload[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	default:
		return ""
	}
}

func readMap(payload map[string]any, key string) (map[string]any, bool) {
	if payload == nil {
		return nil, false
	}
	value, ok := payload[key].(map[string]any)
	return value, ok
}

func readBool(payload map[string]any, key string, fallback bool) bool {
	if payload == nil {
		return fallback
	}
	switch value := payload[key].(type) {
	case bool:
		return value
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			// Y/N flags are common in legacy exports.
			switch strings.ToUpper(strings.TrimSpace(value)) {
			case "Y", "YES":
				return true
			case "N", "NO":
				return false
			}
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

func readInt(payload map[string]any, key string) (int, bool) {
	if payload == nil {
		return 0, false
	}
	return toInt(payload[key])
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		parsed, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
