package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/whois"
)

// DomainRunner scores domain registration signals: age, privacy
// proxying, and registrar reputation. Runs under every pipeline mode
// since WHOIS needs no live site.
type DomainRunner struct {
	whois whois.Provider
}

// NewDomainRunner creates the domain category runner.
func NewDomainRunner(provider whois.Provider) *DomainRunner {
	return &DomainRunner{whois: provider}
}

func (r *DomainRunner) ID() string                  { return model.CategoryDomain }
func (r *DomainRunner) Modes() []model.PipelineMode { return allModes }

func (r *DomainRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	record, err := r.whois.Lookup(ctx, in.Target.Domain)
	if err != nil {
		return Degraded(in.Category, "whois_lookup", err)
	}

	res := newResult(in.Category)

	ageCheck := in.Category.Check("domain_age")
	age := record.AgeDays(in.Now)
	if age < 0 {
		pass(&res, ageCheck, "domain creation date unavailable")
	} else if points := ageCheck.BandPoints(age); points > 0 {
		hit(&res, ageCheck, points,
			fmt.Sprintf("domain registered %.0f days ago", age),
			map[string]interface{}{"age_days": age, "created_at": record.CreatedAt})
	} else {
		pass(&res, ageCheck, fmt.Sprintf("established domain (%.0f days old)", age))
	}

	privacyCheck := in.Category.Check("privacy_protection")
	if record.Privacy {
		hit(&res, privacyCheck, privacyCheck.Points,
			"registrant hidden behind a privacy service",
			map[string]interface{}{"registrant_org": record.RegistrantOrg})
	} else {
		pass(&res, privacyCheck, "registrant information is public")
	}

	registrarCheck := in.Category.Check("registrar_reputation")
	if reg := matchLowReputationRegistrar(record.Registrar); reg != "" {
		hit(&res, registrarCheck, registrarCheck.Points,
			fmt.Sprintf("registrar %q appears frequently in abuse reports", record.Registrar),
			map[string]interface{}{"registrar": record.Registrar, "matched": reg})
	} else {
		pass(&res, registrarCheck, "registrar has no elevated abuse profile")
	}

	res.Clamp()
	return res
}

func matchLowReputationRegistrar(registrar string) string {
	lower := strings.ToLower(registrar)
	for _, known := range lowReputationRegistrars {
		if strings.Contains(lower, known) {
			return known
		}
	}
	return ""
}
