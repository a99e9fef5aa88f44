// internal/sanitize/sanitize.go
//
// Best-effort filter for externally generated markup.
//
// Context
// -------
// Generated documents are untrusted until they pass through Clean.  The
// filter is deliberately pattern-based: no HTML parsing or
// re-serialization, so legitimate generated pages are never reshaped.
//
// Policy
// ------
//   - <script> elements are removed unless their src matches a small
//     allow-list of trusted CDN substrings (the utility CSS framework and
//     the web font provider that generated pages depend on).  Inline
//     scripts are always removed.
//   - Inline event handlers, javascript: URIs, iframes, objects, embeds,
//     and form actions are *detected* and reported but passed through
//     unchanged.  That asymmetry is the documented contract; tightening it
//     would change accepted output (callers log Inspect findings instead).
//
// Clean never fails and is idempotent: Clean(Clean(x)) == Clean(x).
package sanitize

import "regexp"

// Trusted CDN substrings.  A script whose src contains any of these is
// kept; everything else in the script category is stripped.
var trustedSrc = []string{
	"tailwindcss",
	"cdn.",
	"fonts.googleapis",
}

var (
	reScript  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reSrcAttr = regexp.MustCompile(`(?i)src\s*=\s*["']([^"']*)["']`)

	// Detection-only categories.
	reHandler = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	reJSURI   = regexp.MustCompile(`(?i)javascript:`)
	reIframe  = regexp.MustCompile(`(?i)<iframe`)
	reObject  = regexp.MustCompile(`(?i)<object`)
	reEmbed   = regexp.MustCompile(`(?i)<embed`)
	reFormAct = regexp.MustCompile(`(?i)<form[^>]*action\s*=\s*["'][^"']*["']`)
)

// Finding is one dangerous pattern seen in a document.
type Finding struct {
	Category string // "script", "event-handler", "javascript-uri", …
	Match    string // the offending fragment, bounded
	Removed  bool   // true only for the script category
}

// Report aggregates everything Inspect saw.
type Report struct {
	Findings []Finding
}

// Categories returns the distinct categories present, in detection order.
func (r Report) Categories() []string {
	seen := make(map[string]bool, len(r.Findings))
	var out []string
	for _, f := range r.Findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}

// Clean strips script elements that are not on the trusted-CDN allow-list
// and returns the document otherwise unchanged.  It never fails; the
// result is always writable and servable.
//
// Removal runs to a fixed point: deleting a block can splice the
// surrounding text into a new script element ("<scr<script>..</script>ipt>"),
// so a single pass could emit markup it would itself strip.  Each pass
// only shortens the input, so the loop terminates.
func Clean(raw string) string {
	out := raw
	for {
		next := reScript.ReplaceAllStringFunc(out, func(block string) string {
			if scriptAllowed(block) {
				return block
			}
			return ""
		})
		if next == out {
			return out
		}
		out = next
	}
}

// Inspect reports every dangerous pattern in raw without altering it.
// Only the script category is ever removed by Clean; the rest is
// surfaced so callers can log or flag it.
func Inspect(raw string) Report {
	var rep Report

	for _, block := range reScript.FindAllString(raw, -1) {
		if !scriptAllowed(block) {
			rep.Findings = append(rep.Findings, finding("script", block, true))
		}
	}

	detect := []struct {
		category string
		re       *regexp.Regexp
	}{
		{"event-handler", reHandler},
		{"javascript-uri", reJSURI},
		{"iframe", reIframe},
		{"object", reObject},
		{"embed", reEmbed},
		{"form-action", reFormAct},
	}
	for _, d := range detect {
		for _, m := range d.re.FindAllString(raw, -1) {
			rep.Findings = append(rep.Findings, finding(d.category, m, false))
		}
	}
	return rep
}

// scriptAllowed reports whether a full <script>…</script> block carries a
// src attribute pointing at a trusted CDN.
func scriptAllowed(block string) bool {
	m := reSrcAttr.FindStringSubmatch(block)
	if m == nil {
		return false // inline script
	}
	for _, t := range trustedSrc {
		if containsFold(m[1], t) {
			return true
		}
	}
	return false
}

const maxFragment = 120

func finding(category, match string, removed bool) Finding {
	if len(match) > maxFragment {
		match = match[:maxFragment]
	}
	return Finding{Category: category, Match: match, Removed: removed}
}

// containsFold is a case-insensitive strings.Contains for ASCII needles.
func containsFold(s, needle string) bool {
	n := len(needle)
	if n == 0 {
		return true
	}
	for i := 0; i+n <= len(s); i++ {
		j := 0
		for j < n && lower(s[i+j]) == lower(needle[j]) {
			j++
		}
		if j == n {
			return true
		}
	}
	return false
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}
