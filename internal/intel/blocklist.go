package intel

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sentra-scan/sentra/internal/model"
)

// Blocklist is the operator-maintained internal denylist. Unlike the
// external sources it is authoritative: a hit is a confirmed threat at
// full confidence, and the list is always consulted, never rate limited.
//
// File format, one entry per line:
//
//	https://evil.example/path   exact canonical URL
//	evil.example                domain and all its subdomains
//	# comment
type Blocklist struct {
	urls    map[string]bool
	domains map[string]bool
}

// NewBlocklist loads a blocklist file. A missing path yields an empty,
// usable blocklist.
func NewBlocklist(path string) (*Blocklist, error) {
	bl := &Blocklist{
		urls:    make(map[string]bool),
		domains: make(map[string]bool),
	}
	if path == "" {
		return bl, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return bl, nil
		}
		return nil, fmt.Errorf("opening blocklist: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			bl.urls[strings.TrimSuffix(line, "/")] = true
		} else {
			bl.domains[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading blocklist: %w", err)
	}
	return bl, nil
}

// Add registers an entry at runtime. Used by tests and the admin path.
func (b *Blocklist) Add(entry string) {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://") {
		b.urls[strings.TrimSuffix(entry, "/")] = true
		return
	}
	b.domains[entry] = true
}

// Len reports the number of loaded entries.
func (b *Blocklist) Len() int { return len(b.urls) + len(b.domains) }

func (b *Blocklist) Name() string { return "internal" }

// Check never errs: the blocklist is local memory.
func (b *Blocklist) Check(ctx context.Context, target *model.ScanTarget) (*model.ThreatIntelMatch, error) {
	match := &model.ThreatIntelMatch{Source: b.Name()}

	if b.urls[strings.ToLower(target.CanonicalURL)] {
		match.Match = true
		match.ThreatType = "blocklisted"
		match.Confidence = 100
		match.Evidence = map[string]interface{}{"match_kind": "url"}
		return match, nil
	}

	host := target.Hostname
	for {
		if b.domains[host] {
			match.Match = true
			match.ThreatType = "blocklisted"
			match.Confidence = 100
			match.Evidence = map[string]interface{}{"match_kind": "domain", "matched": host}
			return match, nil
		}
		idx := strings.Index(host, ".")
		if idx < 0 {
			break
		}
		host = host[idx+1:]
	}
	return match, nil
}
