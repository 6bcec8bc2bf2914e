// Package ai holds the model provider adapters and the consensus engine
// that reconciles their verdicts into a score multiplier.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sentra-scan/sentra/internal/model"
)

// Provider is one AI model backend able to classify a target.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Classify asks the model for a verdict on the analyzed target.
	Classify(ctx context.Context, req Request) (*model.AIModelVerdict, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request carries the deterministic analysis evidence the model reasons
// over. The model sees scores and findings, never raw page bytes.
type Request struct {
	// Target is the canonicalized URL under analysis
	Target *model.ScanTarget

	// BaseScore and MaxScore frame the deterministic result
	BaseScore int
	MaxScore  int

	// Categories are the per-category results with their findings
	Categories []model.CategoryResult

	// Reachability summarizes how the probe classified the host
	Reachability *model.ReachabilityResult

	// IntelMatches counts threat intelligence sources that flagged the URL
	IntelMatches int

	// Model overrides the provider's configured model name
	Model string
}

// Config holds one provider's connection settings.
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// BuildPrompt renders the classification prompt. The model must answer
// with a single JSON object so parsing stays deterministic.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Analyze this URL for phishing, malware, and scam risk.

URL: %s
Registered domain: %s
Reachability: %s (analysis pipeline: %s)
Deterministic risk score: %d of %d possible
Threat intelligence sources flagging it: %d

Per-category results:
`, req.Target.CanonicalURL, req.Target.Domain,
		req.Reachability.Status, req.Reachability.Pipeline,
		req.BaseScore, req.MaxScore, req.IntelMatches)

	for _, cat := range req.Categories {
		if cat.Skipped {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d/%d\n", cat.Label, cat.Score, cat.MaxScore)
		for _, f := range cat.Findings {
			if f.Points > 0 {
				fmt.Fprintf(&b, "    %s (%d pts): %s\n", f.Severity, f.Points, f.Description)
			}
		}
	}

	b.WriteString(`
Respond with ONLY a JSON object, no prose around it:
{"verdict": "<safe|suspicious|phishing|malware|scam>", "confidence": <0.0-1.0>, "reasoning": "<one or two sentences>"}`)

	return b.String()
}

const systemPrompt = "You are a URL threat analyst. You weigh deterministic scan evidence and answer with a strict JSON verdict. You never invent evidence that is not in the input."

// ParseVerdict extracts the JSON verdict object from a model response,
// tolerating code fences and surrounding prose.
func ParseVerdict(text string) (verdict model.Verdict, confidence float64, reasoning string, err error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", 0, "", fmt.Errorf("no JSON object in response")
	}

	var payload struct {
		Verdict    string  `json:"verdict"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return "", 0, "", fmt.Errorf("decoding verdict: %w", err)
	}

	v := model.Verdict(strings.ToLower(strings.TrimSpace(payload.Verdict)))
	known := false
	for _, k := range model.KnownVerdicts {
		if v == k {
			known = true
			break
		}
	}
	if !known {
		return "", 0, "", fmt.Errorf("unknown verdict %q", payload.Verdict)
	}

	conf := payload.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return v, conf, strings.TrimSpace(payload.Reasoning), nil
}
