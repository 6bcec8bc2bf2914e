package checks

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentra-scan/sentra/internal/model"
)

// ContentRunner analyzes the fetched page markup: credential forms,
// script obfuscation, hidden frames, forced redirects. FULL pipeline
// only; the other modes have no trustworthy body to inspect.
type ContentRunner struct{}

// NewContentRunner creates the content category runner.
func NewContentRunner() *ContentRunner { return &ContentRunner{} }

func (r *ContentRunner) ID() string                  { return model.CategoryContent }
func (r *ContentRunner) Modes() []model.PipelineMode { return fullOnly }

var obfuscationMarkers = regexp.MustCompile(`(?i)\beval\s*\(|unescape\s*\(|fromCharCode|atob\s*\(|document\.write\s*\(\s*unescape`)

func (r *ContentRunner) Run(ctx context.Context, in *Input) model.CategoryResult {
	body := in.Reachability.Body
	if body == "" {
		return Degraded(in.Category, "content_fetch", fmt.Errorf("no body snapshot available"))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Degraded(in.Category, "content_parse", err)
	}

	res := newResult(in.Category)

	pwCheck := in.Category.Check("insecure_password_form")
	hasPassword := doc.Find(`input[type="password"]`).Length() > 0
	if hasPassword && in.Target.Scheme != "https" {
		hit(&res, pwCheck, pwCheck.Points, "password form served without HTTPS", nil)
	} else if hasPassword {
		pass(&res, pwCheck, "password form is served over HTTPS")
	} else {
		pass(&res, pwCheck, "no password form on the page")
	}

	formCheck := in.Category.Check("external_form_action")
	if action := externalFormAction(doc, in.Target); action != "" {
		hit(&res, formCheck, formCheck.Points,
			"form submits credentials to a different domain",
			map[string]interface{}{"action": action})
	} else {
		pass(&res, formCheck, "forms submit to the page's own domain")
	}

	scriptCheck := in.Category.Check("obfuscated_scripts")
	if count := countObfuscatedScripts(doc); count > 0 {
		hit(&res, scriptCheck, scriptCheck.Points,
			fmt.Sprintf("%d script block(s) use obfuscation primitives", count),
			map[string]interface{}{"obfuscated_scripts": count})
	} else {
		pass(&res, scriptCheck, "no obfuscated inline scripts")
	}

	iframeCheck := in.Category.Check("hidden_iframe")
	if count := countHiddenIframes(doc); count > 0 {
		hit(&res, iframeCheck, iframeCheck.Points,
			fmt.Sprintf("%d hidden iframe(s) embedded", count),
			map[string]interface{}{"hidden_iframes": count})
	} else {
		pass(&res, iframeCheck, "no hidden iframes")
	}

	refreshCheck := in.Category.Check("meta_refresh_redirect")
	if dest := metaRefreshTarget(doc); dest != "" {
		hit(&res, refreshCheck, refreshCheck.Points,
			"page forces a meta-refresh redirect",
			map[string]interface{}{"destination": dest})
	} else {
		pass(&res, refreshCheck, "no forced meta-refresh")
	}

	brandCheck := in.Category.Check("brand_keyword_mismatch")
	if brand := impersonatedBrand(doc, in.Target); brand != "" {
		hit(&res, brandCheck, brandCheck.Points,
			fmt.Sprintf("page presents as %q on an unrelated domain", brand),
			map[string]interface{}{"brand": brand})
	} else {
		pass(&res, brandCheck, "page branding matches its domain")
	}

	res.Clamp()
	return res
}

// impersonatedBrand reports a brand named in the page title or image
// alt text when the target domain does not belong to that brand.
func impersonatedBrand(doc *goquery.Document, target *model.ScanTarget) string {
	text := strings.ToLower(doc.Find("title").Text())
	doc.Find("img[alt]").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		text += " " + strings.ToLower(alt)
	})
	if text == "" {
		return ""
	}

	for brand, owned := range brandDomains {
		if !strings.Contains(text, brand) {
			continue
		}
		for _, d := range owned {
			if target.Domain == d {
				return ""
			}
		}
		return brand
	}
	return ""
}

func externalFormAction(doc *goquery.Document, target *model.ScanTarget) string {
	var external string
	doc.Find("form[action]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		action, _ := s.Attr("action")
		parsed, err := url.Parse(action)
		if err != nil || parsed.Host == "" {
			return true // Relative action stays on-site
		}
		host := strings.ToLower(parsed.Hostname())
		if host != target.Hostname && !strings.HasSuffix(host, "."+target.Domain) && host != target.Domain {
			external = action
			return false
		}
		return true
	})
	return external
}

func countObfuscatedScripts(doc *goquery.Document) int {
	count := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if len(text) > 200 && obfuscationMarkers.MatchString(text) {
			count++
		}
	})
	return count
}

func countHiddenIframes(doc *goquery.Document) int {
	count := 0
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		width, _ := s.Attr("width")
		height, _ := s.Attr("height")
		hidden := strings.Contains(strings.ReplaceAll(strings.ToLower(style), " ", ""), "display:none") ||
			strings.Contains(strings.ReplaceAll(strings.ToLower(style), " ", ""), "visibility:hidden") ||
			width == "0" || height == "0"
		if hidden {
			count++
		}
	})
	return count
}

func metaRefreshTarget(doc *goquery.Document) string {
	var dest string
	doc.Find(`meta[http-equiv]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(equiv, "refresh") {
			return true
		}
		content, _ := s.Attr("content")
		if idx := strings.Index(strings.ToLower(content), "url="); idx >= 0 {
			dest = content[idx+4:]
			return false
		}
		return true
	})
	return dest
}
