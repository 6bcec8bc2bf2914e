package model

import (
	"errors"
	"testing"
)

func TestNormalizeTarget_Canonicalization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://Example.COM/path", "https://example.com/path"},
		{"strips trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"strips fragment", "https://example.com/a#section", "https://example.com/a"},
		{"sorts query params", "https://example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2"},
		{"assumes https", "example.com/login", "https://example.com/login"},
		{"keeps non-default port", "https://example.com:8443/x", "https://example.com:8443/x"},
		{"drops default port", "https://example.com:443/x", "https://example.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := NormalizeTarget(tt.in)
			if err != nil {
				t.Fatalf("NormalizeTarget(%q) failed: %v", tt.in, err)
			}
			if target.CanonicalURL != tt.want {
				t.Errorf("canonical = %q, want %q", target.CanonicalURL, tt.want)
			}
		})
	}
}

func TestNormalizeTarget_Idempotent(t *testing.T) {
	first, err := NormalizeTarget("https://Example.com/a/?b=2&a=1")
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}

	second, err := NormalizeTarget(first.CanonicalURL)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}

	if first.CanonicalURL != second.CanonicalURL {
		t.Errorf("canonicalization not idempotent: %q vs %q", first.CanonicalURL, second.CanonicalURL)
	}
}

func TestNormalizeTarget_EquivalentForms(t *testing.T) {
	a, err := NormalizeTarget("https://Example.com/a/?b=2&a=1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalizeTarget("https://example.com/a?a=1&b=2")
	if err != nil {
		t.Fatal(err)
	}
	if a.CanonicalURL != b.CanonicalURL {
		t.Errorf("equivalent URLs canonicalize differently: %q vs %q", a.CanonicalURL, b.CanonicalURL)
	}
}

func TestNormalizeTarget_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://example.com/file", "https://"} {
		_, err := NormalizeTarget(in)
		if err == nil {
			t.Errorf("NormalizeTarget(%q): expected error", in)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("NormalizeTarget(%q): expected ValidationError, got %T", in, err)
		}
	}
}

func TestNormalizeTarget_RegisteredDomain(t *testing.T) {
	target, err := NormalizeTarget("https://login.secure.example.co.uk/session")
	if err != nil {
		t.Fatal(err)
	}
	if target.Domain != "example.co.uk" {
		t.Errorf("registered domain = %q, want example.co.uk", target.Domain)
	}
	if target.Hostname != "login.secure.example.co.uk" {
		t.Errorf("hostname = %q", target.Hostname)
	}
}
