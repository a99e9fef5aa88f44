package account

import (
	"strings"
	"testing"
)

func TestTemporaryPasswordShape(t *testing.T) {
	pw, err := TemporaryPassword()
	if err != nil {
		t.Fatalf("TemporaryPassword: %v", err)
	}
	if len(pw) != passwordLength+1 {
		t.Fatalf("unexpected length %d", len(pw))
	}
	if !strings.HasSuffix(pw, "!") {
		t.Fatalf("expected trailing symbol, got %q", pw)
	}
	for _, r := range pw[:passwordLength] {
		if !strings.ContainsRune(passwordAlphabet, r) {
			t.Fatalf("character %q outside alphabet", r)
		}
	}
}

func TestTemporaryPasswordUnique(t *testing.T) {
	a, _ := TemporaryPassword()
	b, _ := TemporaryPassword()
	if a == b {
		t.Fatalf("two draws produced the same password")
	}
}
