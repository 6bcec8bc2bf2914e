package checks

import (
	"time"

	"github.com/sentra-scan/sentra/internal/whois"
)

// Deps carries the external collaborators runners need.
type Deps struct {
	Whois      whois.Provider
	Resolver   Resolver
	TLSTimeout time.Duration
}

// DefaultRunners builds every built-in category runner. The threat
// intelligence category is produced by the intel aggregator, not a
// runner here.
func DefaultRunners(deps Deps) []Runner {
	if deps.TLSTimeout <= 0 {
		deps.TLSTimeout = 5 * time.Second
	}
	return []Runner{
		NewDomainRunner(deps.Whois),
		NewDNSRunner(deps.Resolver),
		NewSSLRunner(deps.TLSTimeout),
		NewURLPatternRunner(),
		NewContentRunner(),
		NewHeadersRunner(),
		NewPhishingRunner(),
		NewReputationRunner(),
		NewSinkholeRunner(),
	}
}
