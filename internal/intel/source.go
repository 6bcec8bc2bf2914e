// Package intel queries threat intelligence sources concurrently and
// folds their answers into the threat_intel category. External sources
// are advisory: a timeout or error is an abstention, never a scan
// failure. The internal blocklist is authoritative and always consulted.
package intel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/util"
)

// Source answers a yes/no/abstain question about one target.
type Source interface {
	// Name identifies the source in findings and rate limiter buckets.
	Name() string
	// Check queries the source. A nil error with Match=false is a clean
	// negative; an error is an abstention.
	Check(ctx context.Context, target *model.ScanTarget) (*model.ThreatIntelMatch, error)
}

// NewSource builds a Source from its configuration.
func NewSource(cfg model.SourceConfig, httpCfg model.HTTPConfig) (Source, error) {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:           util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			IdleConnTimeout: 30 * time.Second,
		},
	}

	switch cfg.Type {
	case "rest":
		return newRESTSource(cfg, client)
	case "feed":
		return newFeedSource(cfg, client), nil
	default:
		return nil, fmt.Errorf("unknown threat intel source type %q", cfg.Type)
	}
}
