package util

import "testing"

func TestNamespacePrefix(t *testing.T) {
	if got := NamespacePrefix(""); got != "" {
		t.Fatalf("empty namespace: got %q", got)
	}
	if got := NamespacePrefix("keyv"); got != "keyv:" {
		t.Fatalf("got %q want %q", got, "keyv:")
	}
}

func TestEscapeGlob(t *testing.T) {
	cases := map[string]string{
		"plain:":  "plain:",
		"a*b":     `a\*b`,
		"q?[x]":   `q\?\[x\]`,
		`back\sl`: `back\\sl`,
		"^ns:":    `\^ns:`,
	}
	for in, want := range cases {
		if got := EscapeGlob(in); got != want {
			t.Fatalf("EscapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}
