package model

import (
	"fmt"
	"time"
)

// Band awards points when the observed value is below its threshold.
// Bands are evaluated in order; the first matching band wins, and a
// value at or beyond every threshold awards zero.
type Band struct {
	Below  float64 `json:"below" yaml:"below"`
	Points int     `json:"points" yaml:"points"`
}

// CheckConfig is the weight entry for one sub-check. Points is the
// maximum the check can award; Bands, when present, grade a numeric
// observation instead of a boolean hit.
type CheckConfig struct {
	ID     string `json:"id" yaml:"id"`
	Points int    `json:"points" yaml:"points"`
	Bands  []Band `json:"bands,omitempty" yaml:"bands,omitempty"`
}

// BandPoints grades a numeric observation against the check's bands.
// A check without bands awards its full points for any hit.
func (c CheckConfig) BandPoints(value float64) int {
	if len(c.Bands) == 0 {
		return c.Points
	}
	for _, b := range c.Bands {
		if value < b.Below {
			return b.Points
		}
	}
	return 0
}

// CategoryConfig enables one risk category and carries its weight table.
type CategoryConfig struct {
	ID       string        `json:"id" yaml:"id"`
	Label    string        `json:"label" yaml:"label"`
	MaxScore int           `json:"max_score" yaml:"max_score"`
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Checks   []CheckConfig `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// Check returns the weight entry for a sub-check id. Missing entries
// return a zero-point config so disabled checks award nothing.
func (c *CategoryConfig) Check(id string) CheckConfig {
	for _, chk := range c.Checks {
		if chk.ID == id {
			return chk
		}
	}
	return CheckConfig{ID: id}
}

// SourceConfig is one threat intelligence source.
type SourceConfig struct {
	Name      string        `json:"name" yaml:"name"`
	Type      string        `json:"type" yaml:"type"` // rest, feed, internal
	Endpoint  string        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKeyEnv string        `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Weight    int           `json:"weight" yaml:"weight"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	Priority  int           `json:"priority" yaml:"priority"` // Lower number wins finding-order ties
	Enabled   bool          `json:"enabled" yaml:"enabled"`
}

// IntelConfig bounds the threat intelligence category.
type IntelConfig struct {
	Sources        []SourceConfig `json:"sources" yaml:"sources"`
	CategoryMax    int            `json:"category_max" yaml:"category_max"`
	InternalWeight int            `json:"internal_weight" yaml:"internal_weight"` // Authoritative blocklist contribution
	RatePerSecond  float64        `json:"rate_per_second" yaml:"rate_per_second"`
}

// ModelConfig is one AI model participating in consensus.
type ModelConfig struct {
	Name     string  `json:"name" yaml:"name"`
	Provider string  `json:"provider" yaml:"provider"` // openai, anthropic, ollama
	Model    string  `json:"model" yaml:"model"`
	Weight   float64 `json:"weight" yaml:"weight"`
	Rank     int     `json:"rank" yaml:"rank"`
	Enabled  bool    `json:"enabled" yaml:"enabled"`
}

// AIConfig drives the consensus engine.
type AIConfig struct {
	Models               []ModelConfig     `json:"models" yaml:"models"`
	Strategy             ConsensusStrategy `json:"strategy" yaml:"strategy"`
	MultiplierMethod     MultiplierMethod  `json:"multiplier_method" yaml:"multiplier_method"`
	MinMultiplier        float64           `json:"min_multiplier" yaml:"min_multiplier"`
	MaxMultiplier        float64           `json:"max_multiplier" yaml:"max_multiplier"`
	PenalizeDisagreement bool              `json:"penalize_disagreement" yaml:"penalize_disagreement"`
	DisagreementPenalty  float64           `json:"disagreement_penalty" yaml:"disagreement_penalty"`
	MinimumModels        int               `json:"minimum_models" yaml:"minimum_models"`
	Required             bool              `json:"required" yaml:"required"` // Hard-fail the scan when consensus is unavailable
	Timeout              time.Duration     `json:"timeout" yaml:"timeout"`
}

// RiskThresholds classify a final score, evaluated highest first.
type RiskThresholds struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
}

// ProbeConfig carries per-stage probe timeouts.
type ProbeConfig struct {
	DNSTimeout   time.Duration `json:"dns_timeout" yaml:"dns_timeout"`
	TCPTimeout   time.Duration `json:"tcp_timeout" yaml:"tcp_timeout"`
	HTTPTimeout  time.Duration `json:"http_timeout" yaml:"http_timeout"`
	UserAgent    string        `json:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// CacheTTLs configures the four cache namespaces independently.
type CacheTTLs struct {
	Result       time.Duration `json:"result" yaml:"result"`
	Reachability time.Duration `json:"reachability" yaml:"reachability"`
	Intel        time.Duration `json:"intel" yaml:"intel"`
	Whois        time.Duration `json:"whois" yaml:"whois"`
}

// HTTPConfig carries outbound HTTP hygiene settings shared by adapters.
type HTTPConfig struct {
	HTTPProxy     string `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty"`
	NoProxy       string `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty"`
	RespectRobots bool   `json:"respect_robots" yaml:"respect_robots"` // Content fetch politeness, off for hostile targets
}

// ScanConfiguration is a versioned, named bundle of every knob the
// engine consumes. Exactly one configuration is active system-wide; the
// orchestrator accepts an explicit override per scan.
type ScanConfiguration struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Version     int              `json:"version" yaml:"version"`
	Categories  []CategoryConfig `json:"categories" yaml:"categories"`
	Intel       IntelConfig      `json:"intel" yaml:"intel"`
	AI          AIConfig         `json:"ai" yaml:"ai"`
	Thresholds  RiskThresholds   `json:"thresholds" yaml:"thresholds"`
	GlobalMax   int              `json:"global_max" yaml:"global_max"`
	Probe       ProbeConfig      `json:"probe" yaml:"probe"`
	CacheTTL    CacheTTLs        `json:"cache_ttl" yaml:"cache_ttl"`
	HTTP        HTTPConfig       `json:"http" yaml:"http"`
	ScanTimeout time.Duration    `json:"scan_timeout" yaml:"scan_timeout"`
}

// Category returns the configuration for a category id, nil if absent.
func (c *ScanConfiguration) Category(id string) *CategoryConfig {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i]
		}
	}
	return nil
}

// EnabledCategories returns enabled categories in declaration order.
func (c *ScanConfiguration) EnabledCategories() []CategoryConfig {
	var out []CategoryConfig
	for _, cat := range c.Categories {
		if cat.Enabled {
			out = append(out, cat)
		}
	}
	return out
}

// EnabledModels returns enabled AI models in declaration order.
func (c *ScanConfiguration) EnabledModels() []ModelConfig {
	var out []ModelConfig
	for _, m := range c.AI.Models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// EnabledSources returns enabled TI sources in declaration order.
func (c *ScanConfiguration) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Intel.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration's internal consistency. A
// configuration that fails validation must never reach the scoring path.
func (c *ScanConfiguration) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return &ConfigurationError{ConfigID: c.ID, Reason: fmt.Sprintf(format, args...)}
	}

	if c.ID == "" {
		return fail("missing id")
	}
	if len(c.EnabledCategories()) == 0 {
		return fail("no categories enabled")
	}
	if c.GlobalMax <= 0 {
		return fail("global_max must be positive, got %d", c.GlobalMax)
	}

	seen := make(map[string]bool)
	for _, cat := range c.Categories {
		if seen[cat.ID] {
			return fail("duplicate category %q", cat.ID)
		}
		seen[cat.ID] = true
		if !cat.Enabled {
			continue
		}
		if cat.MaxScore <= 0 {
			return fail("category %q: max_score must be positive", cat.ID)
		}
		for _, chk := range cat.Checks {
			if chk.Points < 0 {
				return fail("category %q check %q: negative points", cat.ID, chk.ID)
			}
			if chk.Points > cat.MaxScore {
				return fail("category %q check %q: points %d exceed category max %d", cat.ID, chk.ID, chk.Points, cat.MaxScore)
			}
			prev := -1.0
			for _, b := range chk.Bands {
				if b.Below <= prev {
					return fail("category %q check %q: band thresholds must be ascending", cat.ID, chk.ID)
				}
				prev = b.Below
			}
		}
	}

	if c.Intel.CategoryMax <= 0 {
		return fail("intel category_max must be positive")
	}
	for _, s := range c.Intel.Sources {
		if !s.Enabled {
			continue
		}
		if s.Weight <= 0 {
			return fail("intel source %q: weight must be positive", s.Name)
		}
		if s.Timeout <= 0 {
			return fail("intel source %q: timeout must be positive", s.Name)
		}
	}

	t := c.Thresholds
	if !(t.Critical > t.High && t.High > t.Medium && t.Medium > t.Low && t.Low > 0) {
		return fail("risk thresholds must be strictly descending and positive: %+v", t)
	}

	ai := c.AI
	if ai.MinMultiplier <= 0 || ai.MaxMultiplier < ai.MinMultiplier {
		return fail("multiplier range [%v,%v] invalid", ai.MinMultiplier, ai.MaxMultiplier)
	}
	if ai.MinimumModels < 1 {
		return fail("minimum_models must be at least 1")
	}
	switch ai.Strategy {
	case StrategyWeightedVote, StrategyUnanimous, StrategyMajority, StrategyHighestConfidence:
	default:
		return fail("unknown consensus strategy %q", ai.Strategy)
	}
	switch ai.MultiplierMethod {
	case MultiplierAverage, MultiplierWeighted, MultiplierMax:
	default:
		return fail("unknown multiplier method %q", ai.MultiplierMethod)
	}
	for _, m := range ai.Models {
		if m.Enabled && m.Weight <= 0 {
			return fail("model %q: weight must be positive", m.Name)
		}
	}

	return nil
}
