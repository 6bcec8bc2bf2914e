package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sentra-scan/sentra/internal/model"
)

// DNSRunner scores DNS posture: mail and sender-authentication records,
// nameserver redundancy. Legitimate organizations almost always carry
// SPF/DMARC; throwaway phishing domains rarely bother.
type DNSRunner struct {
	resolver Resolver
}

// NewDNSRunner creates the dns category runner.
func NewDNSRunner(resolver Resolver) *DNSRunner {
	return &DNSRunner{resolver: resolver}
}

func (r *DNSRunner) ID() string                  { return model.CategoryDNS }
func (r *DNSRunner) Modes() []model.PipelineMode { return allModes }

func (r *DNSRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	domain := in.Target.Domain

	ns, nsErr := r.resolver.LookupNS(ctx, domain)
	mx, mxErr := r.resolver.LookupMX(ctx, domain)
	txt, txtErr := r.resolver.LookupTXT(ctx, domain)
	if nsErr != nil && mxErr != nil && txtErr != nil {
		// All queries failed: no DNS basis at all, degrade.
		return Degraded(in.Category, "dns_lookup", nsErr)
	}

	res := newResult(in.Category)

	mxCheck := in.Category.Check("no_mx")
	if len(mx) == 0 {
		hit(&res, mxCheck, mxCheck.Points, "no MX records: domain cannot receive mail",
			map[string]interface{}{"mx_count": 0})
	} else {
		pass(&res, mxCheck, fmt.Sprintf("%d MX records present", len(mx)))
	}

	spfCheck := in.Category.Check("no_spf")
	if hasPrefix(txt, "v=spf1") {
		pass(&res, spfCheck, "SPF record present")
	} else {
		hit(&res, spfCheck, spfCheck.Points, "no SPF record: sender spoofing unmitigated", nil)
	}

	dmarcCheck := in.Category.Check("no_dmarc")
	dmarcTXT, err := r.resolver.LookupTXT(ctx, "_dmarc."+domain)
	if err == nil && hasPrefix(dmarcTXT, "v=DMARC1") {
		pass(&res, dmarcCheck, "DMARC policy present")
	} else {
		hit(&res, dmarcCheck, dmarcCheck.Points, "no DMARC policy published", nil)
	}

	nsCheck := in.Category.Check("low_ns_count")
	if len(ns) < 2 {
		hit(&res, nsCheck, nsCheck.Points,
			fmt.Sprintf("only %d nameserver(s): no redundancy", len(ns)),
			map[string]interface{}{"ns": ns})
	} else {
		pass(&res, nsCheck, fmt.Sprintf("%d nameservers configured", len(ns)))
	}

	// A random label resolving means wildcard DNS, a staple of bulk
	// phishing kits that serve any subdomain.
	wildcardCheck := in.Category.Check("wildcard_dns")
	probe := "sentra-" + uuid.NewString()[:8] + "." + domain
	if ips, err := r.resolver.LookupA(ctx, probe); err == nil && len(ips) > 0 {
		hit(&res, wildcardCheck, wildcardCheck.Points,
			"wildcard DNS: arbitrary subdomains resolve",
			map[string]interface{}{"probe": probe, "ips": ips})
	} else {
		pass(&res, wildcardCheck, "arbitrary subdomains do not resolve")
	}

	res.Clamp()
	return res
}

func hasPrefix(records []string, prefix string) bool {
	for _, rec := range records {
		if strings.HasPrefix(strings.TrimSpace(rec), prefix) {
			return true
		}
	}
	return false
}
