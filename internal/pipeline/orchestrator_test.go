package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sentra-scan/sentra/internal/ai"
	"github.com/sentra-scan/sentra/internal/cache"
	"github.com/sentra-scan/sentra/internal/checks"
	"github.com/sentra-scan/sentra/internal/intel"
	"github.com/sentra-scan/sentra/internal/model"
)

type stubProber struct {
	result *model.ReachabilityResult
	delay  time.Duration
}

func (s *stubProber) Probe(ctx context.Context, _ *model.ScanTarget) *model.ReachabilityResult {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	return s.result
}

type stubIntel struct{ report *intel.Report }

func (s *stubIntel) Analyze(_ context.Context, _ *model.ScanTarget) *intel.Report {
	return s.report
}

type stubConsensus struct {
	result *model.ConsensusResult
	err    error
	models int
}

func (s *stubConsensus) Evaluate(_ context.Context, _ ai.Request) (*model.ConsensusResult, error) {
	return s.result, s.err
}
func (s *stubConsensus) ModelCount() int { return s.models }

func online() *model.ReachabilityResult {
	return &model.ReachabilityResult{
		Status:   model.StatusOnline,
		Pipeline: model.PipelineFull,
		Headers:  map[string]string{"Content-Security-Policy": "default-src 'self'"},
		Body:     "<html><body>hello</body></html>",
	}
}

// lexical-only configuration: no WHOIS, DNS, or TLS dependencies.
func lexicalConfig() *model.ScanConfiguration {
	cfg := model.DefaultConfiguration()
	keep := map[string]bool{
		model.CategoryURLPattern:  true,
		model.CategoryPhishing:    true,
		model.CategoryReputation:  true,
		model.CategorySinkhole:    true,
		model.CategoryThreatIntel: true,
	}
	for i := range cfg.Categories {
		cfg.Categories[i].Enabled = keep[cfg.Categories[i].ID]
	}
	return cfg
}

func lexicalRunners() []checks.Runner {
	return []checks.Runner{
		checks.NewURLPatternRunner(),
		checks.NewPhishingRunner(),
		checks.NewReputationRunner(),
		checks.NewSinkholeRunner(),
	}
}

func tiReport(score int) *intel.Report {
	return &intel.Report{
		Category: model.CategoryResult{
			Category: model.CategoryThreatIntel,
			Label:    "Threat Intelligence",
			Score:    score,
			MaxScore: 100,
			Findings: []model.Finding{},
		},
		Matches: []model.ThreatIntelMatch{{Source: "stub", Match: score > 0, Confidence: 100, Weight: score}},
	}
}

func newOrchestrator(t *testing.T, cfg *model.ScanConfiguration, prober Prober, intelAnalyzer IntelAnalyzer, consensus Consensus, store cache.Store) *Orchestrator {
	t.Helper()
	source := NewStaticSource()
	source.Put(cfg)
	if err := source.SetActive(cfg.ID); err != nil {
		t.Fatal(err)
	}
	return New(source, prober, lexicalRunners(), intelAnalyzer, consensus, store, slog.New(slog.DiscardHandler))
}

func TestScan_CompletesWithOneResultPerCategory(t *testing.T) {
	cfg := lexicalConfig()
	orch := newOrchestrator(t, cfg,
		&stubProber{result: online()},
		&stubIntel{report: tiReport(40)},
		&stubConsensus{models: 2, result: &model.ConsensusResult{
			Verdict: model.VerdictPhishing, Multiplier: 1.4, RespondedModels: 2, TotalModels: 2,
		}},
		cache.Nop{})

	result, err := orch.Scan(context.Background(), "https://paypa1-secure.top/login", "")
	if err != nil {
		t.Fatal(err)
	}

	if result.State != model.StateCompleted {
		t.Errorf("state = %s, want COMPLETED", result.State)
	}
	if len(result.Categories) != 5 {
		t.Fatalf("categories = %d, want one per enabled category (5)", len(result.Categories))
	}
	seen := map[string]bool{}
	for _, cat := range result.Categories {
		if seen[cat.Category] {
			t.Errorf("category %s appears twice", cat.Category)
		}
		seen[cat.Category] = true
	}
	if result.BaseScore <= 40 {
		t.Errorf("base = %d, want lexical findings on top of the TI 40", result.BaseScore)
	}
	if result.Consensus == nil || result.FinalScore <= result.BaseScore {
		t.Errorf("multiplier 1.4 should amplify: base %d final %d", result.BaseScore, result.FinalScore)
	}
	if result.ScanID == "" {
		t.Error("scan id not assigned")
	}
}

func TestScan_ResultCacheIdempotent(t *testing.T) {
	cfg := lexicalConfig()
	store := cache.NewMemoryStore(time.Minute, time.Minute)
	orch := newOrchestrator(t, cfg,
		&stubProber{result: online()},
		&stubIntel{report: tiReport(40)},
		nil,
		store)

	first, err := orch.Scan(context.Background(), "https://paypa1-secure.top/login", "")
	if err != nil {
		t.Fatal(err)
	}
	// Equivalent URL form must hit the same cache entry.
	second, err := orch.Scan(context.Background(), "HTTPS://PAYPA1-SECURE.TOP/login", "")
	if err != nil {
		t.Fatal(err)
	}

	if first.Cached {
		t.Error("first scan must not be served from cache")
	}
	if !second.Cached {
		t.Error("second scan should be served from cache")
	}
	if first.FinalScore != second.FinalScore || first.ScanID != second.ScanID {
		t.Errorf("cached result differs: %d/%s vs %d/%s",
			first.FinalScore, first.ScanID, second.FinalScore, second.ScanID)
	}
}

func TestScan_OfflineTargetSkipsLiveCategories(t *testing.T) {
	cfg := lexicalConfig()
	if ssl := cfg.Category(model.CategorySSL); ssl != nil {
		ssl.Enabled = true // fullOnly checks degrade lexically offline
	}
	content := cfg.Category(model.CategoryContent)
	content.Enabled = true

	source := NewStaticSource()
	source.Put(cfg)
	_ = source.SetActive(cfg.ID)
	runners := append(lexicalRunners(), checks.NewContentRunner(), checks.NewSSLRunner(time.Second))
	orch := New(source, &stubProber{result: &model.ReachabilityResult{
		Status: model.StatusOffline, Pipeline: model.PipelinePassive,
	}}, runners, &stubIntel{report: tiReport(0)}, nil, cache.Nop{}, slog.New(slog.DiscardHandler))

	result, err := orch.Scan(context.Background(), "https://gone.example.com", "")
	if err != nil {
		t.Fatal(err)
	}

	var contentResult *model.CategoryResult
	for i := range result.Categories {
		if result.Categories[i].Category == model.CategoryContent {
			contentResult = &result.Categories[i]
		}
	}
	if contentResult == nil {
		t.Fatal("content category missing from an offline scan")
	}
	if !contentResult.Skipped || contentResult.Score != 0 {
		t.Errorf("content under PASSIVE should be a skipped placeholder, got %+v", contentResult)
	}
}

func TestScan_ConsensusFailureAbsorbedWhenOptional(t *testing.T) {
	cfg := lexicalConfig()
	cfg.AI.Required = false
	orch := newOrchestrator(t, cfg,
		&stubProber{result: online()},
		&stubIntel{report: tiReport(0)},
		&stubConsensus{models: 2, err: &model.InsufficientConsensusError{Responded: 0, Required: 1}},
		cache.Nop{})

	result, err := orch.Scan(context.Background(), "https://example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Consensus != nil {
		t.Error("failed consensus should leave the result without one")
	}
	if result.FinalScore != result.BaseScore {
		t.Errorf("neutral multiplier expected: base %d final %d", result.BaseScore, result.FinalScore)
	}
	degraded := findScanFinding(result, "ai_unavailable")
	if degraded == nil {
		t.Fatal("degrading to a neutral multiplier must be recorded as a finding")
	}
	if !degraded.Degraded || degraded.Points != 0 {
		t.Errorf("ai_unavailable should score nothing and be marked degraded: %+v", degraded)
	}
}

func TestScan_MissingAIPanelRecordsFinding(t *testing.T) {
	cfg := lexicalConfig()
	cfg.AI.Required = false
	orch := newOrchestrator(t, cfg,
		&stubProber{result: online()}, &stubIntel{report: tiReport(0)}, nil, cache.Nop{})

	result, err := orch.Scan(context.Background(), "https://example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if findScanFinding(result, "ai_unavailable") == nil {
		t.Error("scanning without an AI panel must record ai_unavailable")
	}
}

func TestScan_ConsensusDisagreementRecordsFinding(t *testing.T) {
	cfg := lexicalConfig()
	cfg.AI.Required = false
	orch := newOrchestrator(t, cfg,
		&stubProber{result: online()},
		&stubIntel{report: tiReport(0)},
		&stubConsensus{models: 2, result: &model.ConsensusResult{
			Strategy:        model.StrategyUnanimous,
			Verdict:         model.VerdictSuspicious,
			Confidence:      0,
			RespondedModels: 2,
			TotalModels:     2,
			Multiplier:      1.0,
			Disagreement:    true,
		}},
		cache.Nop{})

	result, err := orch.Scan(context.Background(), "https://example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if findScanFinding(result, "ai_disagreement") == nil {
		t.Error("a broken unanimity requirement must surface as a finding")
	}
}

func findScanFinding(result *model.ScanResult, checkID string) *model.Finding {
	for i := range result.Findings {
		if result.Findings[i].CheckID == checkID {
			return &result.Findings[i]
		}
	}
	return nil
}

func TestScan_ConsensusFailureFailsWhenRequired(t *testing.T) {
	cfg := lexicalConfig()
	cfg.AI.Required = true
	orch := newOrchestrator(t, cfg,
		&stubProber{result: online()},
		&stubIntel{report: tiReport(0)},
		&stubConsensus{models: 2, err: &model.InsufficientConsensusError{Responded: 0, Required: 2}},
		cache.Nop{})

	_, err := orch.Scan(context.Background(), "https://example.com", "")
	var insufficient *model.InsufficientConsensusError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientConsensusError", err)
	}
}

func TestScan_InvalidURLRejected(t *testing.T) {
	orch := newOrchestrator(t, lexicalConfig(),
		&stubProber{result: online()}, &stubIntel{report: tiReport(0)}, nil, cache.Nop{})

	_, err := orch.Scan(context.Background(), "not a url at all \x00", "")
	var invalid *model.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestScan_UnknownConfigRejected(t *testing.T) {
	orch := newOrchestrator(t, lexicalConfig(),
		&stubProber{result: online()}, &stubIntel{report: tiReport(0)}, nil, cache.Nop{})

	_, err := orch.Scan(context.Background(), "https://example.com", "no-such-config")
	var confErr *model.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestScan_ProbeTimeout(t *testing.T) {
	cfg := lexicalConfig()
	cfg.ScanTimeout = 20 * time.Millisecond
	orch := newOrchestrator(t, cfg,
		&stubProber{result: online(), delay: time.Second},
		&stubIntel{report: tiReport(0)}, nil, cache.Nop{})

	_, err := orch.Scan(context.Background(), "https://slow.example.com", "")
	if !errors.Is(err, model.ErrProbeTimeout) {
		t.Fatalf("err = %v, want ErrProbeTimeout", err)
	}
}

func TestScan_CancellationSurfaces(t *testing.T) {
	orch := newOrchestrator(t, lexicalConfig(),
		&stubProber{result: online(), delay: time.Second},
		&stubIntel{report: tiReport(0)}, nil, cache.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := orch.Scan(ctx, "https://example.com", "")
	if !errors.Is(err, model.ErrScanCancelled) {
		t.Fatalf("err = %v, want ErrScanCancelled", err)
	}
}

func TestScan_SinkholedTargetIsCritical(t *testing.T) {
	cfg := lexicalConfig()
	orch := newOrchestrator(t, cfg,
		&stubProber{result: &model.ReachabilityResult{
			Status:   model.StatusSinkhole,
			Pipeline: model.PipelineSinkhole,
			Evidence: map[string]string{"sinkhole_ip": "192.42.118.4"},
		}},
		&stubIntel{report: tiReport(0)}, nil, cache.Nop{})

	result, err := orch.Scan(context.Background(), "https://seized.example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.RiskLevel != model.RiskCritical {
		t.Errorf("risk = %s, want critical for a sinkholed host", result.RiskLevel)
	}
}
