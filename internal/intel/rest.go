package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sentra-scan/sentra/internal/model"
)

// restSource queries a JSON lookup API. The request and response shapes
// of the public services differ enough that each known endpoint gets
// its own parser; unknown endpoints fall back to a plain
// {match, threat_type, confidence} contract.
type restSource struct {
	cfg    model.SourceConfig
	client *http.Client
	apiKey string
	parse  func(body []byte) (matched bool, threatType string, confidence int, firstSeen *time.Time, err error)
}

func newRESTSource(cfg model.SourceConfig, client *http.Client) (*restSource, error) {
	s := &restSource{cfg: cfg, client: client}
	if cfg.APIKeyEnv != "" {
		s.apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	switch cfg.Name {
	case "urlhaus":
		s.parse = parseURLhaus
	case "phishtank":
		s.parse = parsePhishTank
	default:
		s.parse = parseGeneric
	}
	return s, nil
}

func (s *restSource) Name() string { return s.cfg.Name }

func (s *restSource) Check(ctx context.Context, target *model.ScanTarget) (*model.ThreatIntelMatch, error) {
	form := url.Values{"url": {target.CanonicalURL}}
	if s.apiKey != "" {
		form.Set("app_key", s.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", s.cfg.Name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.cfg.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", s.cfg.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", s.cfg.Name, err)
	}

	matched, threatType, confidence, firstSeen, err := s.parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", s.cfg.Name, err)
	}

	return &model.ThreatIntelMatch{
		Source:     s.cfg.Name,
		Match:      matched,
		ThreatType: threatType,
		Confidence: confidence,
		FirstSeen:  firstSeen,
	}, nil
}

func parseURLhaus(body []byte) (bool, string, int, *time.Time, error) {
	var payload struct {
		QueryStatus string `json:"query_status"`
		Threat      string `json:"threat"`
		URLStatus   string `json:"url_status"`
		DateAdded   string `json:"date_added"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, "", 0, nil, err
	}

	switch payload.QueryStatus {
	case "ok":
		confidence := 90
		if payload.URLStatus == "online" {
			confidence = 100
		}
		var firstSeen *time.Time
		if ts, err := time.Parse("2006-01-02 15:04:05 MST", payload.DateAdded); err == nil {
			firstSeen = &ts
		}
		return true, payload.Threat, confidence, firstSeen, nil
	case "no_results":
		return false, "", 0, nil, nil
	default:
		return false, "", 0, nil, fmt.Errorf("query_status %q", payload.QueryStatus)
	}
}

func parsePhishTank(body []byte) (bool, string, int, *time.Time, error) {
	var payload struct {
		Results struct {
			InDatabase bool `json:"in_database"`
			Verified   bool `json:"verified"`
			Valid      bool `json:"valid"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, "", 0, nil, err
	}

	if !payload.Results.InDatabase || !payload.Results.Valid {
		return false, "", 0, nil, nil
	}
	confidence := 70
	if payload.Results.Verified {
		confidence = 100
	}
	return true, "phishing", confidence, nil, nil
}

func parseGeneric(body []byte) (bool, string, int, *time.Time, error) {
	var payload struct {
		Match      bool   `json:"match"`
		ThreatType string `json:"threat_type"`
		Confidence int    `json:"confidence"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, "", 0, nil, err
	}
	if payload.Match && payload.Confidence == 0 {
		payload.Confidence = 100
	}
	return payload.Match, payload.ThreatType, payload.Confidence, nil, nil
}
