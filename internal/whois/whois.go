// Package whois provides the WHOIS collaborator contract and its
// default implementation with cache read-through.
package whois

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/sentra-scan/sentra/internal/cache"
)

// Record is the subset of WHOIS data the domain category consumes.
type Record struct {
	Domain        string     `json:"domain"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Registrar     string     `json:"registrar,omitempty"`
	RegistrantOrg string     `json:"registrant_org,omitempty"`
	Privacy       bool       `json:"privacy"`
}

// AgeDays returns the domain age in days, or -1 when the creation date
// is unknown.
func (r *Record) AgeDays(now time.Time) float64 {
	if r.CreatedAt == nil {
		return -1
	}
	return now.Sub(*r.CreatedAt).Hours() / 24
}

// Provider is the WHOIS collaborator contract.
type Provider interface {
	Lookup(ctx context.Context, domain string) (*Record, error)
}

// Client looks up WHOIS records over the wire and caches parsed records
// in the whois namespace.
type Client struct {
	client *whois.Client
	store  cache.Store
	ttl    time.Duration
}

// NewClient creates a Client. store may be cache.Nop{}.
func NewClient(timeout time.Duration, store cache.Store, ttl time.Duration) *Client {
	c := whois.NewClient()
	c.SetTimeout(timeout)
	return &Client{client: c, store: store, ttl: ttl}
}

// Lookup fetches the WHOIS record for a registered domain, serving from
// cache when possible.
func (c *Client) Lookup(ctx context.Context, domain string) (*Record, error) {
	if data, found := c.store.Get(cache.NamespaceWhois, domain); found {
		var cached Record
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	type lookupResult struct {
		raw string
		err error
	}
	// The whois client has its own dial timeout but no context support;
	// run it in a goroutine so caller cancellation is still honored.
	ch := make(chan lookupResult, 1)
	go func() {
		raw, err := c.client.Whois(domain)
		ch <- lookupResult{raw: raw, err: err}
	}()

	var raw string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("whois %s: %w", domain, res.err)
		}
		raw = res.raw
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse whois %s: %w", domain, err)
	}

	record := fromParsed(domain, parsed)

	if data, err := json.Marshal(record); err == nil {
		_ = c.store.Set(cache.NamespaceWhois, domain, data, c.ttl)
	}
	return record, nil
}

func fromParsed(domain string, info whoisparser.WhoisInfo) *Record {
	record := &Record{Domain: domain}

	if info.Domain != nil {
		record.CreatedAt = info.Domain.CreatedDateInTime
		record.ExpiresAt = info.Domain.ExpirationDateInTime
	}
	if info.Registrar != nil {
		record.Registrar = info.Registrar.Name
	}
	if info.Registrant != nil {
		record.RegistrantOrg = info.Registrant.Organization
		record.Privacy = isPrivacyOrg(info.Registrant.Organization) || isPrivacyOrg(info.Registrant.Name)
	}

	return record
}

// Registrant strings used by the common WHOIS privacy services.
var privacyMarkers = []string{
	"redacted", "privacy", "whoisguard", "domains by proxy",
	"contact privacy", "withheld", "private", "identity protect",
}

func isPrivacyOrg(org string) bool {
	lower := strings.ToLower(org)
	for _, marker := range privacyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
