package submission

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy

	tagPattern = regexp.MustCompile(`<(?:/?[A-Za-z][^<>]*|![^<>]*|\?[^<>]*)>`)
)

// SanitizeText strips markup from a free-text response and returns plain
// text. Only complete tags are removed; a lone "<", quotes and ampersands
// come back unchanged.
func SanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// The policy returns HTML-escaped text, so its output is unescaped.
	stripped := textSanitizer().Sanitize(escapeText(trimmed))
	return strings.TrimSpace(html.UnescapeString(stripped))
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// escapeText escapes "&" everywhere and "<" outside complete tags, so the
// parser sees literal text where the user typed it.
func escapeText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	last := 0
	for _, loc := range tagPattern.FindAllStringIndex(s, -1) {
		b.WriteString(escapeSegment(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(escapeSegment(s[last:]))
	return b.String()
}

func escapeSegment(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	return strings.ReplaceAll(s, "<", "&lt;")
}
