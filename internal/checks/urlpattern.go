package checks

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/sentra-scan/sentra/internal/model"
)

// URLPatternRunner scores lexical URL structure: things visible without
// any network traffic, so it runs under every pipeline mode.
type URLPatternRunner struct{}

// NewURLPatternRunner creates the url_pattern category runner.
func NewURLPatternRunner() *URLPatternRunner { return &URLPatternRunner{} }

func (r *URLPatternRunner) ID() string                  { return model.CategoryURLPattern }
func (r *URLPatternRunner) Modes() []model.PipelineMode { return allModes }

func (r *URLPatternRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	res := newResult(in.Category)
	target := in.Target

	ipCheck := in.Category.Check("ip_literal_host")
	if net.ParseIP(target.Hostname) != nil {
		hit(&res, ipCheck, ipCheck.Points, "host is a raw IP address instead of a domain",
			map[string]interface{}{"host": target.Hostname})
	} else {
		pass(&res, ipCheck, "host is a domain name")
	}

	punyCheck := in.Category.Check("punycode_host")
	if strings.Contains(target.Hostname, "xn--") {
		hit(&res, punyCheck, punyCheck.Points, "punycode hostname can disguise lookalike characters",
			map[string]interface{}{"host": target.Hostname})
	} else {
		pass(&res, punyCheck, "hostname uses plain ASCII")
	}

	lenCheck := in.Category.Check("url_length")
	urlLen := float64(len(target.CanonicalURL))
	if points := lenCheck.BandPoints(urlLen); points > 0 {
		hit(&res, lenCheck, points, fmt.Sprintf("unusually long URL (%d characters)", int(urlLen)), nil)
	} else {
		pass(&res, lenCheck, "URL length is ordinary")
	}

	depthCheck := in.Category.Check("subdomain_depth")
	labels := strings.Count(target.Hostname, ".") + 1
	if points := depthCheck.BandPoints(float64(labels)); points > 0 {
		hit(&res, depthCheck, points,
			fmt.Sprintf("deeply nested hostname (%d labels)", labels),
			map[string]interface{}{"host": target.Hostname, "labels": labels})
	} else {
		pass(&res, depthCheck, "hostname nesting is ordinary")
	}

	brandCheck := in.Category.Check("brand_in_path")
	if brand := brandInPath(target); brand != "" {
		hit(&res, brandCheck, brandCheck.Points,
			fmt.Sprintf("brand %q appears in the URL path of an unrelated domain", brand),
			map[string]interface{}{"brand": brand, "path": target.Path})
	} else {
		pass(&res, brandCheck, "no brand impersonation in path")
	}

	tldCheck := in.Category.Check("suspicious_tld")
	tld := target.Hostname[strings.LastIndex(target.Hostname, ".")+1:]
	if suspiciousTLDs[tld] {
		hit(&res, tldCheck, tldCheck.Points,
			fmt.Sprintf("TLD .%s has a high abuse rate", tld),
			map[string]interface{}{"tld": tld})
	} else {
		pass(&res, tldCheck, "TLD has no elevated abuse profile")
	}

	noiseCheck := in.Category.Check("hyphen_digit_noise")
	if hyphenDigitNoisy(target.Hostname) {
		hit(&res, noiseCheck, noiseCheck.Points,
			"hostname packed with hyphens and digits, typical of generated domains",
			map[string]interface{}{"host": target.Hostname})
	} else {
		pass(&res, noiseCheck, "hostname composition is ordinary")
	}

	res.Clamp()
	return res
}

// brandInPath reports a brand token present in the path or subdomain of
// a domain that brand does not own.
func brandInPath(target *model.ScanTarget) string {
	haystack := strings.ToLower(target.Path + " " + strings.TrimSuffix(target.Hostname, target.Domain))
	for brand, owned := range brandDomains {
		if !strings.Contains(haystack, brand) {
			continue
		}
		legitimate := false
		for _, d := range owned {
			if target.Domain == d || strings.HasSuffix(target.Domain, "."+d) {
				legitimate = true
				break
			}
		}
		if !legitimate {
			return brand
		}
	}
	return ""
}

func hyphenDigitNoisy(host string) bool {
	hyphens := strings.Count(host, "-")
	digits := 0
	for _, c := range host {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	return hyphens >= 3 || (hyphens >= 2 && digits >= 3)
}
