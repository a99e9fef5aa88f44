package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const doc = "<!DOCTYPE html>\n<html><body>hi</body></html>"

func TestExtractHTMLFencedBlock(t *testing.T) {
	in := "Here is your site:\n```html\n" + doc + "\n```\nEnjoy!"
	assert.Equal(t, doc, ExtractHTML(in))
}

func TestExtractHTMLBareDocument(t *testing.T) {
	assert.Equal(t, doc, ExtractHTML("  \n"+doc+"\n"))
}

func TestExtractHTMLEmbeddedInProse(t *testing.T) {
	in := "Sure thing.\n" + doc + "\nLet me know if you need changes."
	assert.Equal(t, doc, ExtractHTML(in))
}

func TestExtractHTMLFallthrough(t *testing.T) {
	// No recognizable document: pass the trimmed text along.
	assert.Equal(t, "just words", ExtractHTML("  just words \n"))
}

func TestExtractHTMLCaseInsensitiveDoctype(t *testing.T) {
	in := "<!doctype html><html><body>x</body></html>"
	assert.Equal(t, in, ExtractHTML(in))
}
