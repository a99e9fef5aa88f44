package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const page = `<!DOCTYPE html>
<html><head>
<script src="https://cdn.tailwindcss.com"></script>
<link href="https://fonts.googleapis.com/css2?family=Inter" rel="stylesheet">
</head><body>
<h1>Hello</h1>
<script>alert("inline")</script>
<script src="https://evil.example/x.js"></script>
</body></html>`

func TestCleanStripsUntrustedScripts(t *testing.T) {
	out := Clean(page)

	assert.Contains(t, out, "cdn.tailwindcss.com", "trusted CDN include must survive")
	assert.NotContains(t, out, `alert("inline")`)
	assert.NotContains(t, out, "evil.example")
	assert.Contains(t, out, "<h1>Hello</h1>")
}

func TestCleanIdempotent(t *testing.T) {
	once := Clean(page)
	assert.Equal(t, once, Clean(once))
}

func TestCleanSplicedScriptRemoved(t *testing.T) {
	// Deleting the inner blocks concatenates the remainder into a fresh
	// inline script; removal must chase that to a fixed point instead of
	// persisting it.
	in := "<scr<script>a</script>ipt>alert(1)</scr<script>b</script>ipt>"

	out := Clean(in)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert(1)")
	assert.Equal(t, out, Clean(out))
}

func TestCleanNestedScriptOpeners(t *testing.T) {
	in := `<script><script>alert("x")</script></script><p>kept</p>`

	out := Clean(in)
	assert.NotContains(t, out, `alert("x")`)
	assert.Contains(t, out, "<p>kept</p>")
	assert.Equal(t, out, Clean(out))
}

func TestCleanPassThroughDetectOnlyCategories(t *testing.T) {
	// Handlers, javascript: URIs, iframes, and form actions are reported
	// but never removed.
	in := `<a href="javascript:void(0)" onclick="x()">go</a>
<iframe src="https://example.com"></iframe>
<form action="https://example.com/post"><input></form>`

	assert.Equal(t, in, Clean(in))
}

func TestCleanNeverFailsOnMalformedInput(t *testing.T) {
	for _, in := range []string{"", "<script", "<script>unterminated", "plain text"} {
		out := Clean(in)
		// Unterminated script elements do not match the block pattern and
		// pass through untouched.
		assert.Equal(t, in, out)
	}
}

func TestInspectCategories(t *testing.T) {
	rep := Inspect(page + `<iframe src=x></iframe><div onclick="x()">y</div>`)

	cats := rep.Categories()
	assert.Contains(t, cats, "script")
	assert.Contains(t, cats, "iframe")
	assert.Contains(t, cats, "event-handler")

	for _, f := range rep.Findings {
		if f.Category == "script" {
			assert.True(t, f.Removed)
		} else {
			assert.False(t, f.Removed, "category %s must be detect-only", f.Category)
		}
	}
}

func TestInspectIgnoresTrustedScripts(t *testing.T) {
	rep := Inspect(`<script src="https://cdn.tailwindcss.com"></script>`)
	for _, f := range rep.Findings {
		assert.NotEqual(t, "script", f.Category)
	}
}

func TestFindingFragmentBounded(t *testing.T) {
	long := "<script>" + strings.Repeat("x", 4000) + "</script>"
	rep := Inspect(long)
	if assert.NotEmpty(t, rep.Findings) {
		assert.LessOrEqual(t, len(rep.Findings[0].Match), maxFragment)
	}
}
