package whois

import (
	"testing"
	"time"
)

func TestRecord_AgeDays(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	created := now.AddDate(0, 0, -2)
	r := &Record{Domain: "new.example.com", CreatedAt: &created}
	if age := r.AgeDays(now); age < 1.9 || age > 2.1 {
		t.Errorf("AgeDays = %v, want ~2", age)
	}

	unknown := &Record{Domain: "old.example.com"}
	if age := unknown.AgeDays(now); age != -1 {
		t.Errorf("AgeDays without creation date = %v, want -1", age)
	}
}

func TestIsPrivacyOrg(t *testing.T) {
	tests := []struct {
		org  string
		want bool
	}{
		{"REDACTED FOR PRIVACY", true},
		{"WhoisGuard, Inc.", true},
		{"Domains By Proxy, LLC", true},
		{"Example Corporation", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isPrivacyOrg(tt.org); got != tt.want {
			t.Errorf("isPrivacyOrg(%q) = %v, want %v", tt.org, got, tt.want)
		}
	}
}
