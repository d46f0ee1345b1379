package adapter

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

const maxSanitizePasses = 4

// sanitizeText strips markup from labels and help text taken from untrusted
// documents. Entities are decoded before sanitizing and the result is
// sanitized again until it is stable, so escaped or split markup cannot turn
// into live tags while plain text like "Tom & Jerry" survives unchanged.
func sanitizeText(raw string) string {
	text := strings.TrimSpace(html.UnescapeString(raw))
	for pass := 0; pass < maxSanitizePasses && text != ""; pass++ {
		next := strings.TrimSpace(html.UnescapeString(textSanitizer().Sanitize(text)))
		if next == text {
			return text
		}
		text = next
	}
	return strings.NewReplacer("<", "", ">", "").Replace(text)
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
