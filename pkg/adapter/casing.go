package adapter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// opaqueKeys hold component payloads whose keys belong to the widget and are
// never rewritten.
var opaqueKeys = map[string]bool{"data": true, "ui": true}

// NormalizeKeys rewrites PascalCase and snake_case keys into the camelCase
// the adapter reads. WindowId becomes windowId and max_length becomes
// maxLength. Keys inside data and ui payloads are left alone.
func NormalizeKeys(value any) any {
	return rewrite(value, camelKey, func(key string) bool { return opaqueKeys[key] })
}

// PascalizeKeys is the inverse, used by servers speaking the PascalCase
// dialect.
func PascalizeKeys(value any) any {
	return rewrite(value, pascalKey, func(key string) bool { return opaqueKeys[camelKey(key)] })
}

func rewrite(value any, rename func(string) string, opaque func(string) bool) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			renamed := rename(key)
			if opaque(renamed) {
				out[renamed] = child
				continue
			}
			out[renamed] = rewrite(child, rename, opaque)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = rewrite(child, rename, opaque)
		}
		return out
	default:
		return value
	}
}

func camelKey(key string) string {
	if strings.Contains(key, "_") {
		parts := strings.Split(strings.ToLower(key), "_")
		var b strings.Builder
		for i, part := range parts {
			if part == "" {
				continue
			}
			if i == 0 || b.Len() == 0 {
				b.WriteString(part)
				continue
			}
			b.WriteString(upperFirst(part))
		}
		return b.String()
	}
	if isUpperRun(key) {
		return strings.ToLower(key)
	}
	r, size := utf8.DecodeRuneInString(key)
	if size == 0 {
		return key
	}
	return string(unicode.ToLower(r)) + key[size:]
}

func pascalKey(key string) string {
	return upperFirst(key)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// isUpperRun matches acronym keys such as "ID" or "UI".
func isUpperRun(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
