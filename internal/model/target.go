package model

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ScanTarget is the normalized form of a URL submitted for scanning.
// It is immutable once constructed; every downstream component receives
// the same canonical identity regardless of how the URL was written.
type ScanTarget struct {
	RawURL       string `json:"raw_url"`       // URL as submitted
	CanonicalURL string `json:"canonical_url"` // Normalized URL (cache key basis)
	Hostname     string `json:"hostname"`      // Lower-cased host without port
	Port         int    `json:"port"`          // Explicit or scheme-default port
	Domain       string `json:"domain"`        // Registered domain (eTLD+1)
	Scheme       string `json:"scheme"`
	Path         string `json:"path"`
}

// NormalizeTarget parses and canonicalizes a raw URL into a ScanTarget.
// Canonical form: lower-cased scheme and host, fragment removed, trailing
// slash stripped, query parameters sorted by key. A URL without a scheme
// is assumed to be https.
func NormalizeTarget(rawURL string) (*ScanTarget, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, &ValidationError{Input: rawURL, Reason: "empty URL"}
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, &ValidationError{Input: rawURL, Reason: fmt.Sprintf("parse: %v", err)}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &ValidationError{Input: rawURL, Reason: "unsupported scheme: " + scheme}
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, &ValidationError{Input: rawURL, Reason: "missing hostname"}
	}

	port := 443
	if scheme == "http" {
		port = 80
	}
	if p := parsed.Port(); p != "" {
		if _, err := fmt.Sscanf(p, "%d", &port); err != nil {
			return nil, &ValidationError{Input: rawURL, Reason: "invalid port: " + p}
		}
	}

	path := strings.TrimSuffix(parsed.EscapedPath(), "/")

	canonical := scheme + "://" + host
	if (scheme == "https" && port != 443) || (scheme == "http" && port != 80) {
		canonical += fmt.Sprintf(":%d", port)
	}
	canonical += path
	if parsed.RawQuery != "" {
		canonical += "?" + sortQuery(parsed.RawQuery)
	}

	// Registered domain falls back to the bare host for IP literals
	// and hosts without a known public suffix.
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		domain = host
	}

	return &ScanTarget{
		RawURL:       rawURL,
		CanonicalURL: canonical,
		Hostname:     host,
		Port:         port,
		Domain:       domain,
		Scheme:       scheme,
		Path:         path,
	}, nil
}

// sortQuery rewrites a raw query string with keys in sorted order.
// Value order within a repeated key is preserved.
func sortQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
