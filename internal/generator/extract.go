package generator

import (
	"regexp"
	"strings"
)

var (
	reFenced  = regexp.MustCompile("(?s)```html\\s*(.*?)\\s*```")
	reDocSpan = regexp.MustCompile(`(?is)(<!DOCTYPE.*</html>)`)
)

// ExtractHTML recovers the document from a completion that may wrap it in
// a fenced block or surrounding prose.  Tried in order:
//
//  1. a ```html fenced block,
//  2. a response that already starts with <!DOCTYPE or <html>,
//  3. a <!DOCTYPE…</html> span anywhere in the text.
//
// When nothing matches, the trimmed response is returned as-is; the
// sanitizer and the operator preview are the backstop.
func ExtractHTML(response string) string {
	if m := reFenced.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}

	trimmed := strings.TrimSpace(response)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return trimmed
	}

	if m := reDocSpan.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}
