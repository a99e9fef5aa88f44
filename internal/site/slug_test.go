package site

import (
	"strings"
	"testing"
)

func TestSlugifyFoldsAndCollapses(t *testing.T) {
	got := Slugify("Café Martín — Panadería")
	base, _, ok := strings.Cut(got, "-")
	_ = base
	if !ok {
		t.Fatalf("expected random suffix in %q", got)
	}
	if !strings.HasPrefix(got, "cafe-martin-panaderia-") {
		t.Fatalf("unexpected slug %q", got)
	}
	for _, r := range got {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			t.Fatalf("slug %q contains illegal rune %q", got, r)
		}
	}
}

func TestSlugifyEmptyName(t *testing.T) {
	got := Slugify("!!!")
	if !strings.HasPrefix(got, "site-") {
		t.Fatalf("expected fallback slug, got %q", got)
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	long := strings.Repeat("abcde ", 20)
	got := Slugify(long)
	base := got[:strings.LastIndex(got, "-")]
	if len(base) > 30 {
		t.Fatalf("base %q exceeds 30 chars", base)
	}
}

func TestSlugifyUnique(t *testing.T) {
	a, b := Slugify("Same Name"), Slugify("Same Name")
	if a == b {
		t.Fatalf("expected distinct slugs, got %q twice", a)
	}
}
