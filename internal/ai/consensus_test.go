package ai

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sentra-scan/sentra/internal/model"
)

type stubProvider struct {
	verdict *model.AIModelVerdict
	err     error
	delay   time.Duration
}

func (s *stubProvider) Name() string                       { return "stub" }
func (s *stubProvider) IsAvailable(_ context.Context) bool { return true }
func (s *stubProvider) Classify(ctx context.Context, _ Request) (*model.AIModelVerdict, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.verdict, s.err
}

func testRequest(t *testing.T) Request {
	t.Helper()
	target, err := model.NormalizeTarget("https://suspect.example.com/login")
	if err != nil {
		t.Fatal(err)
	}
	return Request{
		Target:       target,
		BaseScore:    120,
		MaxScore:     350,
		Reachability: &model.ReachabilityResult{Status: model.StatusOnline, Pipeline: model.PipelineFull},
	}
}

func aiConfig() model.AIConfig {
	return model.AIConfig{
		Strategy:             model.StrategyWeightedVote,
		MultiplierMethod:     model.MultiplierAverage,
		MinMultiplier:        0.5,
		MaxMultiplier:        1.5,
		PenalizeDisagreement: true,
		DisagreementPenalty:  0.3,
		MinimumModels:        1,
		Timeout:              2 * time.Second,
	}
}

func verdict(name string, v model.Verdict, conf float64) *model.AIModelVerdict {
	return &model.AIModelVerdict{Model: name, Verdict: v, Confidence: conf}
}

func TestEvaluate_UnanimousMalicious(t *testing.T) {
	e := NewEngine(aiConfig(), slog.New(slog.DiscardHandler))
	e.Register(model.ModelConfig{Name: "a", Weight: 1.0}, &stubProvider{verdict: verdict("a", model.VerdictPhishing, 0.9)})
	e.Register(model.ModelConfig{Name: "b", Weight: 1.0}, &stubProvider{verdict: verdict("b", model.VerdictPhishing, 0.8)})

	res, err := e.Evaluate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Verdict != model.VerdictPhishing {
		t.Errorf("verdict = %s, want phishing", res.Verdict)
	}
	if res.AgreementRatio != 1.0 {
		t.Errorf("agreement = %v, want 1.0", res.AgreementRatio)
	}
	// Per-model multipliers 1.45 and 1.40, average 1.425, rounds to 1.43.
	if res.Multiplier != 1.43 {
		t.Errorf("multiplier = %v, want 1.43", res.Multiplier)
	}
	if res.Degraded {
		t.Error("all models answered; result must not be degraded")
	}
}

func TestEvaluate_SafeConsensusLowersScore(t *testing.T) {
	e := NewEngine(aiConfig(), slog.New(slog.DiscardHandler))
	e.Register(model.ModelConfig{Name: "a", Weight: 1.0}, &stubProvider{verdict: verdict("a", model.VerdictSafe, 1.0)})
	e.Register(model.ModelConfig{Name: "b", Weight: 1.0}, &stubProvider{verdict: verdict("b", model.VerdictSafe, 1.0)})

	res, err := e.Evaluate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Verdict != model.VerdictSafe || res.Multiplier != 0.5 {
		t.Errorf("got %s/%v, want safe/0.5", res.Verdict, res.Multiplier)
	}
}

func TestEvaluate_DisagreementPenaltyShrinksDeviation(t *testing.T) {
	cfg := aiConfig()
	e := NewEngine(cfg, slog.New(slog.DiscardHandler))
	e.Register(model.ModelConfig{Name: "a", Weight: 2.0}, &stubProvider{verdict: verdict("a", model.VerdictPhishing, 1.0)})
	e.Register(model.ModelConfig{Name: "b", Weight: 1.0}, &stubProvider{verdict: verdict("b", model.VerdictSafe, 1.0)})

	res, err := e.Evaluate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	// Weighted vote: phishing carries weight 2 of 3 and wins, but only
	// half the responders agreed.
	if res.Verdict != model.VerdictPhishing {
		t.Errorf("verdict = %s, want phishing", res.Verdict)
	}
	if res.AgreementRatio != 0.5 {
		t.Errorf("agreement = %v, want 0.5", res.AgreementRatio)
	}
	// Average of 1.5 and 0.5 is exactly neutral.
	if res.Multiplier != 1.0 {
		t.Errorf("multiplier = %v, want 1.0", res.Multiplier)
	}
}

func TestEvaluate_SlowModelDropped(t *testing.T) {
	cfg := aiConfig()
	cfg.Timeout = 100 * time.Millisecond
	e := NewEngine(cfg, slog.New(slog.DiscardHandler))
	e.Register(model.ModelConfig{Name: "fast", Weight: 1.0}, &stubProvider{verdict: verdict("fast", model.VerdictScam, 0.8)})
	e.Register(model.ModelConfig{Name: "slow", Weight: 1.0}, &stubProvider{
		verdict: verdict("slow", model.VerdictSafe, 1.0), delay: 5 * time.Second,
	})

	res, err := e.Evaluate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.RespondedModels != 1 || res.TotalModels != 2 {
		t.Errorf("responded %d/%d, want 1/2", res.RespondedModels, res.TotalModels)
	}
	if !res.Degraded {
		t.Error("partial panel must be marked degraded")
	}
	if res.Verdict != model.VerdictScam {
		t.Errorf("verdict = %s, want scam from the fast model", res.Verdict)
	}
}

func TestEvaluate_InsufficientConsensus(t *testing.T) {
	cfg := aiConfig()
	cfg.MinimumModels = 2
	e := NewEngine(cfg, slog.New(slog.DiscardHandler))
	e.Register(model.ModelConfig{Name: "a", Weight: 1.0}, &stubProvider{err: errors.New("quota exceeded")})
	e.Register(model.ModelConfig{Name: "b", Weight: 1.0}, &stubProvider{verdict: verdict("b", model.VerdictPhishing, 0.9)})

	_, err := e.Evaluate(context.Background(), testRequest(t))
	var insufficient *model.InsufficientConsensusError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientConsensusError", err)
	}
	if insufficient.Responded != 1 || insufficient.Required != 2 {
		t.Errorf("got %d/%d, want 1/2", insufficient.Responded, insufficient.Required)
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	e := NewEngine(aiConfig(), slog.New(slog.DiscardHandler))
	verdicts := []model.AIModelVerdict{
		*verdict("a", model.VerdictPhishing, 0.93),
		*verdict("b", model.VerdictSuspicious, 0.61),
		*verdict("c", model.VerdictPhishing, 0.77),
	}
	weights := []float64{1.0, 0.5, 1.5}

	first := e.Reconcile(verdicts, weights)
	for i := 0; i < 10; i++ {
		again := e.Reconcile(verdicts, weights)
		if again.Verdict != first.Verdict || again.Multiplier != first.Multiplier ||
			again.Confidence != first.Confidence || again.AgreementRatio != first.AgreementRatio {
			t.Fatalf("reconcile not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestReconcile_Strategies(t *testing.T) {
	verdicts := []model.AIModelVerdict{
		*verdict("a", model.VerdictSafe, 0.95),
		*verdict("b", model.VerdictPhishing, 0.6),
		*verdict("c", model.VerdictPhishing, 0.7),
	}
	weights := []float64{3.0, 1.0, 1.0}

	tests := []struct {
		strategy model.ConsensusStrategy
		want     model.Verdict
	}{
		{model.StrategyWeightedVote, model.VerdictSafe},      // 3.0*0.95 = 2.85 beats 0.6+0.7
		{model.StrategyMajority, model.VerdictPhishing},      // 2 votes beat 1
		{model.StrategyHighestConfidence, model.VerdictSafe}, // 0.95 tops
		{model.StrategyUnanimous, model.VerdictSuspicious},   // disagreement
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			cfg := aiConfig()
			cfg.Strategy = tt.strategy
			e := NewEngine(cfg, slog.New(slog.DiscardHandler))
			res := e.Reconcile(verdicts, weights)
			if res.Verdict != tt.want {
				t.Errorf("verdict = %s, want %s", res.Verdict, tt.want)
			}
		})
	}
}

func TestReconcile_WeightedVoteCountsConfidence(t *testing.T) {
	// Equal weights: two hesitant safe calls must not outvote one
	// near-certain phishing call. Scores are safe 0.2+0.2 = 0.4 vs
	// phishing 0.9.
	verdicts := []model.AIModelVerdict{
		*verdict("a", model.VerdictSafe, 0.2),
		*verdict("b", model.VerdictSafe, 0.2),
		*verdict("c", model.VerdictPhishing, 0.9),
	}
	weights := []float64{1.0, 1.0, 1.0}

	e := NewEngine(aiConfig(), slog.New(slog.DiscardHandler))
	res := e.Reconcile(verdicts, weights)

	if res.Verdict != model.VerdictPhishing {
		t.Errorf("verdict = %s, want phishing", res.Verdict)
	}
	if res.Confidence != 0.9 {
		t.Errorf("confidence = %.2f, want the winner's 0.90", res.Confidence)
	}
	if res.AgreementRatio != 0.33 {
		t.Errorf("agreement = %.2f, want 0.33", res.AgreementRatio)
	}
}

func TestReconcile_UnanimousDisagreementZeroesConfidence(t *testing.T) {
	verdicts := []model.AIModelVerdict{
		*verdict("a", model.VerdictSafe, 0.9),
		*verdict("b", model.VerdictPhishing, 0.8),
	}
	weights := []float64{1.0, 1.0}

	cfg := aiConfig()
	cfg.Strategy = model.StrategyUnanimous
	e := NewEngine(cfg, slog.New(slog.DiscardHandler))
	res := e.Reconcile(verdicts, weights)

	if res.Verdict != model.VerdictSuspicious {
		t.Errorf("verdict = %s, want the conservative suspicious fallback", res.Verdict)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %.2f, want 0 when unanimity is broken", res.Confidence)
	}
	if !res.Disagreement {
		t.Error("Disagreement flag not set")
	}
	if res.AgreementRatio != 0 {
		t.Errorf("agreement = %.2f, want 0: no model voted suspicious", res.AgreementRatio)
	}
}

func TestReconcile_MultiplierMethods(t *testing.T) {
	verdicts := []model.AIModelVerdict{
		*verdict("a", model.VerdictMalware, 1.0), // per-model 1.5
		*verdict("b", model.VerdictSafe, 1.0),    // per-model 0.5
	}
	weights := []float64{3.0, 1.0}

	tests := []struct {
		method model.MultiplierMethod
		want   float64
	}{
		{model.MultiplierAverage, 1.0},
		{model.MultiplierWeighted, 1.21}, // (1.5*3 + 0.5*1)/4 = 1.25, penalty shrinks toward 1.0
		{model.MultiplierMax, 1.43},      // 1.5 is furthest from neutral, then penalty
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			cfg := aiConfig()
			cfg.MultiplierMethod = tt.method
			e := NewEngine(cfg, slog.New(slog.DiscardHandler))
			res := e.Reconcile(verdicts, weights)
			if res.Multiplier != tt.want {
				t.Errorf("multiplier = %v, want %v", res.Multiplier, tt.want)
			}
		})
	}
}

func TestReconcile_MultiplierClamped(t *testing.T) {
	cfg := aiConfig()
	cfg.MinMultiplier = 0.8
	cfg.MaxMultiplier = 1.2
	cfg.PenalizeDisagreement = false
	e := NewEngine(cfg, slog.New(slog.DiscardHandler))

	up := e.Reconcile([]model.AIModelVerdict{*verdict("a", model.VerdictMalware, 1.0)}, []float64{1.0})
	if up.Multiplier != 1.2 {
		t.Errorf("multiplier = %v, want clamped 1.2", up.Multiplier)
	}
	down := e.Reconcile([]model.AIModelVerdict{*verdict("a", model.VerdictSafe, 1.0)}, []float64{1.0})
	if down.Multiplier != 0.8 {
		t.Errorf("multiplier = %v, want clamped 0.8", down.Multiplier)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    model.Verdict
		wantErr bool
	}{
		{"plain", `{"verdict":"phishing","confidence":0.9,"reasoning":"fake login"}`, model.VerdictPhishing, false},
		{"fenced", "```json\n{\"verdict\":\"safe\",\"confidence\":0.7}\n```", model.VerdictSafe, false},
		{"prose around", `Here is my answer: {"verdict":"scam","confidence":0.6} I hope it helps.`, model.VerdictScam, false},
		{"uppercase", `{"verdict":"MALWARE","confidence":0.8}`, model.VerdictMalware, false},
		{"unknown verdict", `{"verdict":"dangerous","confidence":0.8}`, "", true},
		{"no json", `the site looks fine to me`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, _, err := ParseVerdict(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", v)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if v != tt.want {
				t.Errorf("verdict = %s, want %s", v, tt.want)
			}
		})
	}
}

func TestParseVerdict_ClampsConfidence(t *testing.T) {
	_, conf, _, err := ParseVerdict(`{"verdict":"phishing","confidence":3.5}`)
	if err != nil {
		t.Fatal(err)
	}
	if conf != 1.0 {
		t.Errorf("confidence = %v, want clamped 1.0", conf)
	}
}
