package model

import "time"

// Category identifiers. Runners register under these ids; the weight
// tables in ScanConfiguration refer to them.
const (
	CategoryThreatIntel = "threat_intel"
	CategoryDomain      = "domain"
	CategoryDNS         = "dns"
	CategorySSL         = "ssl"
	CategoryURLPattern  = "url_pattern"
	CategoryContent     = "content"
	CategoryHeaders     = "security_headers"
	CategoryPhishing    = "phishing_patterns"
	CategoryReputation  = "reputation"
	CategorySinkhole    = "sinkhole"
)

// DefaultConfiguration returns the balanced preset. Every band boundary
// and point value lives here as data; presets redistribute these knobs
// without touching runner code.
func DefaultConfiguration() *ScanConfiguration {
	return &ScanConfiguration{
		ID:      "default",
		Name:    "Balanced",
		Version: 1,
		Categories: []CategoryConfig{
			{ID: CategoryDomain, Label: "Domain & WHOIS", MaxScore: 40, Enabled: true, Checks: []CheckConfig{
				{ID: "domain_age", Points: 20, Bands: []Band{
					{Below: 7, Points: 20},
					{Below: 30, Points: 15},
					{Below: 90, Points: 10},
					{Below: 365, Points: 5},
				}},
				{ID: "privacy_protection", Points: 8},
				{ID: "registrar_reputation", Points: 12},
			}},
			{ID: CategoryDNS, Label: "DNS Configuration", MaxScore: 25, Enabled: true, Checks: []CheckConfig{
				{ID: "no_mx", Points: 6},
				{ID: "no_spf", Points: 7},
				{ID: "no_dmarc", Points: 7},
				{ID: "low_ns_count", Points: 5},
				{ID: "wildcard_dns", Points: 4},
			}},
			{ID: CategorySSL, Label: "SSL/TLS Security", MaxScore: 30, Enabled: true, Checks: []CheckConfig{
				{ID: "no_https", Points: 15},
				{ID: "cert_expiring", Points: 5, Bands: []Band{
					{Below: 0, Points: 5}, // Already expired
					{Below: 14, Points: 3},
				}},
				{ID: "self_signed", Points: 10},
				{ID: "hostname_mismatch", Points: 8},
				{ID: "cert_age", Points: 5, Bands: []Band{
					{Below: 7, Points: 5},
					{Below: 30, Points: 2},
				}},
			}},
			{ID: CategoryURLPattern, Label: "URL Pattern Analysis", MaxScore: 40, Enabled: true, Checks: []CheckConfig{
				{ID: "ip_literal_host", Points: 10},
				{ID: "punycode_host", Points: 8},
				{ID: "url_length", Points: 5, Bands: []Band{
					{Below: 76, Points: 0},
					{Below: 120, Points: 3},
					{Below: 10000, Points: 5},
				}},
				{ID: "subdomain_depth", Points: 6, Bands: []Band{
					{Below: 4, Points: 0},
					{Below: 6, Points: 3},
					{Below: 100, Points: 6},
				}},
				{ID: "brand_in_path", Points: 8},
				{ID: "suspicious_tld", Points: 6},
				{ID: "hyphen_digit_noise", Points: 5},
			}},
			{ID: CategoryContent, Label: "Content & Script Analysis", MaxScore: 35, Enabled: true, Checks: []CheckConfig{
				{ID: "insecure_password_form", Points: 12},
				{ID: "external_form_action", Points: 8},
				{ID: "obfuscated_scripts", Points: 7},
				{ID: "hidden_iframe", Points: 5},
				{ID: "meta_refresh_redirect", Points: 3},
				{ID: "brand_keyword_mismatch", Points: 6},
			}},
			{ID: CategoryHeaders, Label: "Security Headers", MaxScore: 15, Enabled: true, Checks: []CheckConfig{
				{ID: "no_csp", Points: 5},
				{ID: "no_hsts", Points: 4},
				{ID: "no_xfo", Points: 3},
				{ID: "no_xcto", Points: 3},
			}},
			{ID: CategoryPhishing, Label: "Phishing Patterns", MaxScore: 30, Enabled: true, Checks: []CheckConfig{
				{ID: "urgency_keywords", Points: 10},
				{ID: "credential_terms", Points: 12},
				{ID: "homoglyph_brand", Points: 8},
			}},
			{ID: CategoryReputation, Label: "Trust Graph & Network", MaxScore: 25, Enabled: true, Checks: []CheckConfig{
				{ID: "free_hosting_brand", Points: 15},
				{ID: "url_shortener", Points: 6},
				{ID: "dynamic_dns", Points: 4},
			}},
			// Sinkholed infrastructure is an automatic critical signal:
			// the category max clears the critical threshold so the
			// classification path, not a bypass, produces CRITICAL.
			{ID: CategorySinkhole, Label: "Sinkhole Detection", MaxScore: 250, Enabled: true, Checks: []CheckConfig{
				{ID: "sinkholed", Points: 250},
			}},
			{ID: CategoryThreatIntel, Label: "Threat Intelligence", MaxScore: 100, Enabled: true},
		},
		Intel: IntelConfig{
			CategoryMax:    100,
			InternalWeight: 50,
			RatePerSecond:  10,
			Sources: []SourceConfig{
				{Name: "urlhaus", Type: "rest", Endpoint: "https://urlhaus-api.abuse.ch/v1/url/", Weight: 20, Timeout: 5 * time.Second, Priority: 1, Enabled: true},
				{Name: "openphish", Type: "feed", Endpoint: "https://openphish.com/feed.txt", Weight: 20, Timeout: 5 * time.Second, Priority: 2, Enabled: true},
				{Name: "phishtank", Type: "rest", Endpoint: "https://checkurl.phishtank.com/checkurl/", APIKeyEnv: "PHISHTANK_API_KEY", Weight: 20, Timeout: 5 * time.Second, Priority: 3, Enabled: true},
			},
		},
		AI: AIConfig{
			Strategy:             StrategyWeightedVote,
			MultiplierMethod:     MultiplierAverage,
			MinMultiplier:        0.5,
			MaxMultiplier:        1.5,
			PenalizeDisagreement: true,
			DisagreementPenalty:  0.3,
			MinimumModels:        1,
			Required:             false,
			Timeout:              30 * time.Second,
			Models: []ModelConfig{
				{Name: "gpt-4o-mini", Provider: "openai", Model: "gpt-4o-mini", Weight: 1.0, Rank: 1, Enabled: true},
				{Name: "claude-haiku", Provider: "anthropic", Model: "claude-3-5-haiku-20241022", Weight: 1.0, Rank: 2, Enabled: true},
			},
		},
		Thresholds: RiskThresholds{Critical: 200, High: 120, Medium: 60, Low: 25},
		GlobalMax:  350,
		Probe: ProbeConfig{
			DNSTimeout:   500 * time.Millisecond,
			TCPTimeout:   2 * time.Second,
			HTTPTimeout:  3 * time.Second,
			UserAgent:    "Sentra/1.0 (+https://github.com/sentra-scan/sentra)",
			MaxBodyBytes: 2_000_000,
		},
		CacheTTL: CacheTTLs{
			Result:       time.Hour,
			Reachability: time.Hour,
			Intel:        24 * time.Hour,
			Whois:        7 * 24 * time.Hour,
		},
		ScanTimeout: 30 * time.Second,
	}
}

// StrictConfiguration tightens bands and thresholds for high-security
// environments. Same knobs as the default preset, different data.
func StrictConfiguration() *ScanConfiguration {
	cfg := DefaultConfiguration()
	cfg.ID = "strict"
	cfg.Name = "Strict"
	cfg.Thresholds = RiskThresholds{Critical: 150, High: 90, Medium: 45, Low: 15}
	if cat := cfg.Category(CategoryDomain); cat != nil {
		cat.Checks[0].Bands = []Band{
			{Below: 14, Points: 20},
			{Below: 60, Points: 15},
			{Below: 180, Points: 10},
			{Below: 540, Points: 5},
		}
	}
	cfg.AI.Required = true
	cfg.AI.MinimumModels = 2
	return cfg
}

// PermissiveConfiguration relaxes thresholds for low-noise monitoring.
func PermissiveConfiguration() *ScanConfiguration {
	cfg := DefaultConfiguration()
	cfg.ID = "permissive"
	cfg.Name = "Permissive"
	cfg.Thresholds = RiskThresholds{Critical: 260, High: 170, Medium: 90, Low: 40}
	cfg.AI.PenalizeDisagreement = false
	return cfg
}
