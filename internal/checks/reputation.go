package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentra-scan/sentra/internal/model"
)

// ReputationRunner scores hosting and network trust signals: free
// hosting with brand impersonation, URL shorteners, dynamic DNS.
// Always-run; everything here is derived from the hostname.
type ReputationRunner struct{}

// NewReputationRunner creates the reputation category runner.
func NewReputationRunner() *ReputationRunner { return &ReputationRunner{} }

func (r *ReputationRunner) ID() string                  { return model.CategoryReputation }
func (r *ReputationRunner) Modes() []model.PipelineMode { return allModes }

func (r *ReputationRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	res := newResult(in.Category)
	host := in.Target.Hostname

	freeCheck := in.Category.Check("free_hosting_brand")
	if suffix := matchSuffix(host, freeHostingSuffixes); suffix != "" {
		if brand := brandToken(host, suffix); brand != "" {
			// Free hosting plus a brand token is the classic zero-cost
			// phishing setup and scores the full weight.
			hit(&res, freeCheck, freeCheck.Points,
				fmt.Sprintf("free hosting (%s) with %q brand impersonation", suffix, brand),
				map[string]interface{}{"suffix": suffix, "brand": brand})
		} else {
			hit(&res, freeCheck, freeCheck.Points/3,
				fmt.Sprintf("hosted on free platform %s", suffix),
				map[string]interface{}{"suffix": suffix})
		}
	} else {
		pass(&res, freeCheck, "not hosted on a free platform")
	}

	shortCheck := in.Category.Check("url_shortener")
	if shortenerHosts[in.Target.Domain] || shortenerHosts[host] {
		hit(&res, shortCheck, shortCheck.Points,
			"URL shortener hides the true destination",
			map[string]interface{}{"host": host})
	} else {
		pass(&res, shortCheck, "not a URL shortener")
	}

	ddnsCheck := in.Category.Check("dynamic_dns")
	if suffix := matchSuffix(host, dynamicDNSSuffixes); suffix != "" {
		hit(&res, ddnsCheck, ddnsCheck.Points,
			fmt.Sprintf("dynamic DNS host (%s)", suffix),
			map[string]interface{}{"suffix": suffix})
	} else {
		pass(&res, ddnsCheck, "not on dynamic DNS")
	}

	res.Clamp()
	return res
}

func matchSuffix(host string, suffixes []string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(host, s) {
			return s
		}
	}
	return ""
}

// brandToken returns a brand name present in the subdomain portion of a
// free-hosting hostname.
func brandToken(host, suffix string) string {
	sub := strings.TrimSuffix(host, suffix)
	for brand := range brandDomains {
		if strings.Contains(sub, brand) {
			return brand
		}
	}
	return ""
}
