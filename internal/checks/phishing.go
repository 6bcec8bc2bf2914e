package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentra-scan/sentra/internal/model"
)

// PhishingRunner scores lexical phishing indicators across the URL and
// whatever body snapshot exists. Always-run: these signals matter even
// when the site is offline or hiding behind a challenge.
type PhishingRunner struct{}

// NewPhishingRunner creates the phishing_patterns category runner.
func NewPhishingRunner() *PhishingRunner { return &PhishingRunner{} }

func (r *PhishingRunner) ID() string                  { return model.CategoryPhishing }
func (r *PhishingRunner) Modes() []model.PipelineMode { return allModes }

func (r *PhishingRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	res := newResult(in.Category)
	body := strings.ToLower(in.Reachability.Body)
	pathAndQuery := strings.ToLower(in.Target.CanonicalURL)

	urgencyCheck := in.Category.Check("urgency_keywords")
	if matched := containsAny(body, urgencyPhrases); len(matched) > 0 {
		hit(&res, urgencyCheck, urgencyCheck.BandPoints(float64(len(matched))),
			fmt.Sprintf("%d urgency phrase(s) in page text", len(matched)),
			map[string]interface{}{"phrases": matched})
	} else {
		pass(&res, urgencyCheck, "no urgency language detected")
	}

	credCheck := in.Category.Check("credential_terms")
	pathHits := containsAny(pathAndQuery, phishingPathKeywords)
	bodyHits := containsAny(body, credentialTerms)
	if len(pathHits)+len(bodyHits) >= 2 {
		hit(&res, credCheck, credCheck.Points,
			"credential-harvesting vocabulary in URL and page",
			map[string]interface{}{"path_keywords": pathHits, "body_terms": bodyHits})
	} else if len(pathHits)+len(bodyHits) == 1 {
		hit(&res, credCheck, credCheck.Points/2,
			"credential-related vocabulary present",
			map[string]interface{}{"path_keywords": pathHits, "body_terms": bodyHits})
	} else {
		pass(&res, credCheck, "no credential-harvesting vocabulary")
	}

	glyphCheck := in.Category.Check("homoglyph_brand")
	if brand, spoofed := homoglyphBrand(in.Target); brand != "" {
		hit(&res, glyphCheck, glyphCheck.Points,
			fmt.Sprintf("hostname %q imitates brand %q with character substitution", spoofed, brand),
			map[string]interface{}{"brand": brand, "token": spoofed})
	} else {
		pass(&res, glyphCheck, "no homoglyph brand imitation")
	}

	res.Clamp()
	return res
}

// homoglyphBrand detects brand names written with lookalike character
// substitutions ("paypa1", "g00gle") in a hostname the brand does not
// own.
func homoglyphBrand(target *model.ScanTarget) (brand, token string) {
	host := strings.ToLower(target.Hostname)

	normalized := strings.Map(func(c rune) rune {
		if repl, ok := homoglyphs[c]; ok {
			return repl
		}
		return c
	}, host)
	normalized = strings.ReplaceAll(normalized, "vv", "w")
	normalized = strings.ReplaceAll(normalized, "rn", "m")

	if normalized == host {
		return "", "" // No substitutions to undo
	}

	for b, owned := range brandDomains {
		if !strings.Contains(normalized, b) || strings.Contains(host, b) {
			continue
		}
		legitimate := false
		for _, d := range owned {
			if target.Domain == d {
				legitimate = true
				break
			}
		}
		if !legitimate {
			return b, host
		}
	}
	return "", ""
}

func containsAny(haystack string, needles []string) []string {
	if haystack == "" {
		return nil
	}
	var matched []string
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			matched = append(matched, n)
		}
	}
	return matched
}
