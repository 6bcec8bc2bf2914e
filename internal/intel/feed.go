package intel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sentra-scan/sentra/internal/model"
)

// feedRefreshInterval bounds how often a plaintext feed is re-downloaded.
const feedRefreshInterval = time.Hour

// feedSource checks membership in a plaintext blocklist feed, one URL
// per line. The feed is downloaded lazily and kept in memory; scans
// within the refresh window share the snapshot.
type feedSource struct {
	cfg    model.SourceConfig
	client *http.Client

	mu        sync.Mutex
	urls      map[string]bool
	hosts     map[string]bool
	fetchedAt time.Time
}

func newFeedSource(cfg model.SourceConfig, client *http.Client) *feedSource {
	return &feedSource{cfg: cfg, client: client}
}

func (s *feedSource) Name() string { return s.cfg.Name }

func (s *feedSource) Check(ctx context.Context, target *model.ScanTarget) (*model.ThreatIntelMatch, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	exactMatch := s.urls[strings.ToLower(target.CanonicalURL)]
	hostMatch := s.hosts[target.Hostname]
	s.mu.Unlock()

	match := &model.ThreatIntelMatch{Source: s.cfg.Name}
	switch {
	case exactMatch:
		match.Match = true
		match.ThreatType = "phishing"
		match.Confidence = 100
		match.Evidence = map[string]interface{}{"match_kind": "url"}
	case hostMatch:
		// The feed lists some URL on this host, not this exact one.
		match.Match = true
		match.ThreatType = "phishing"
		match.Confidence = 70
		match.Evidence = map[string]interface{}{"match_kind": "host"}
	}
	return match, nil
}

// refresh downloads the feed if the in-memory snapshot is stale. Only
// one goroutine downloads; the rest wait on the mutex and reuse it.
func (s *feedSource) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.urls != nil && time.Since(s.fetchedAt) < feedRefreshInterval {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("building %s feed request: %w", s.cfg.Name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s feed: %w", s.cfg.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s feed returned HTTP %d", s.cfg.Name, resp.StatusCode)
	}

	urls := make(map[string]bool)
	hosts := make(map[string]bool)
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, 64<<20))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls[strings.ToLower(strings.TrimSuffix(line, "/"))] = true
		if parsed, err := url.Parse(line); err == nil && parsed.Hostname() != "" {
			hosts[strings.ToLower(parsed.Hostname())] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s feed: %w", s.cfg.Name, err)
	}

	s.urls = urls
	s.hosts = hosts
	s.fetchedAt = time.Now()
	return nil
}
