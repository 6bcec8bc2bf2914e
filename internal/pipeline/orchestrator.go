// Package pipeline drives a scan through its states: probe the target,
// fan the analysis categories out in parallel, reconcile the AI
// consensus, and aggregate the final score. Check failures degrade into
// findings; only invalid input, broken configuration, cancellation, and
// an unfinished probe fail a scan.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sentra-scan/sentra/internal/ai"
	"github.com/sentra-scan/sentra/internal/cache"
	"github.com/sentra-scan/sentra/internal/checks"
	"github.com/sentra-scan/sentra/internal/intel"
	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/score"
	"github.com/sentra-scan/sentra/internal/worker"
)

// maxCategoryConcurrency bounds the analysis fan-out.
const maxCategoryConcurrency = 8

// Prober classifies a target's reachability.
type Prober interface {
	Probe(ctx context.Context, target *model.ScanTarget) *model.ReachabilityResult
}

// IntelAnalyzer produces the threat_intel category.
type IntelAnalyzer interface {
	Analyze(ctx context.Context, target *model.ScanTarget) *intel.Report
}

// Consensus reconciles AI verdicts into a multiplier.
type Consensus interface {
	Evaluate(ctx context.Context, req ai.Request) (*model.ConsensusResult, error)
	ModelCount() int
}

// Orchestrator owns one scan at a time per call; it is safe for
// concurrent use.
type Orchestrator struct {
	configs   ConfigSource
	prober    Prober
	runners   []checks.Runner
	intel     IntelAnalyzer
	consensus Consensus
	store     cache.Store
	logger    *slog.Logger
	now       func() time.Time
}

// New assembles an orchestrator. intel and consensus may be nil; the
// corresponding stages then degrade instead of running.
func New(configs ConfigSource, prober Prober, runners []checks.Runner, intelAnalyzer IntelAnalyzer, consensus Consensus, store cache.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = cache.Nop{}
	}
	return &Orchestrator{
		configs:   configs,
		prober:    prober,
		runners:   runners,
		intel:     intelAnalyzer,
		consensus: consensus,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Scan analyzes one URL under the given configuration id ("" selects
// the active configuration). The returned result is complete: exactly
// one category entry per enabled category, including skipped and
// degraded placeholders.
func (o *Orchestrator) Scan(ctx context.Context, rawURL, configID string) (*model.ScanResult, error) {
	cfg, err := o.resolveConfig(ctx, configID)
	if err != nil {
		return nil, err
	}

	target, err := model.NormalizeTarget(rawURL)
	if err != nil {
		return nil, err
	}

	// Result cache: identical URL under an identical configuration
	// within the TTL returns the stored result byte-for-byte.
	cacheKey := cfg.ID + "|" + target.CanonicalURL
	if data, found := o.store.Get(cache.NamespaceResult, cacheKey); found {
		var cached model.ScanResult
		if err := json.Unmarshal(data, &cached); err == nil {
			cached.Cached = true
			o.logger.Info("scan served from cache",
				"url", target.CanonicalURL, "config", cfg.ID, "risk", cached.RiskLevel)
			return &cached, nil
		}
	}

	scanCtx := ctx
	if cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, cfg.ScanTimeout)
		defer cancel()
	}

	result := &model.ScanResult{
		ScanID:    uuid.NewString(),
		Target:    *target,
		ConfigID:  cfg.ID,
		State:     model.StateInitiated,
		StartedAt: o.now().UTC(),
	}
	o.logger.Info("scan started", "scan_id", result.ScanID, "url", target.CanonicalURL, "config", cfg.ID)

	// PROBING. The probe always answers, but an answer produced after
	// the scan deadline has no reachability basis and cannot be scored.
	result.State = model.StateProbing
	reach := o.prober.Probe(scanCtx, target)
	if scanCtx.Err() != nil {
		if ctx.Err() != nil {
			return nil, model.ErrScanCancelled
		}
		return nil, model.ErrProbeTimeout
	}
	result.Reachability = reach
	o.logger.Info("probe complete", "scan_id", result.ScanID,
		"status", reach.Status, "pipeline", reach.Pipeline)

	// ANALYZING. Every enabled category settles exactly once; a runner
	// that cannot execute leaves a placeholder, never a gap.
	result.State = model.StateAnalyzing
	report := o.analyze(scanCtx, cfg, target, reach, result)
	if ctx.Err() != nil {
		return nil, model.ErrScanCancelled
	}

	// CONSENSUS.
	result.State = model.StateConsensus
	if err := o.runConsensus(scanCtx, cfg, target, reach, report, result); err != nil {
		if ctx.Err() != nil {
			return nil, model.ErrScanCancelled
		}
		result.State = model.StateFailed
		return nil, err
	}

	// AGGREGATING.
	result.State = model.StateAggregating
	score.Apply(result, cfg)

	result.State = model.StateCompleted
	result.CompletedAt = o.now().UTC()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
	o.logger.Info("scan complete", "scan_id", result.ScanID,
		"base", result.BaseScore, "final", result.FinalScore,
		"risk", result.RiskLevel, "duration", result.Duration)

	if data, err := json.Marshal(result); err == nil {
		_ = o.store.Set(cache.NamespaceResult, cacheKey, data, cfg.CacheTTL.Result)
	}
	return result, nil
}

func (o *Orchestrator) resolveConfig(ctx context.Context, configID string) (*model.ScanConfiguration, error) {
	var cfg *model.ScanConfiguration
	var err error
	if configID == "" {
		cfg, err = o.configs.GetActiveConfiguration(ctx)
	} else {
		cfg, err = o.configs.GetConfiguration(ctx, configID)
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, &model.ConfigurationError{ConfigID: configID, Reason: "no configuration available"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &model.ConfigurationError{ConfigID: cfg.ID, Reason: err.Error()}
	}
	return cfg, nil
}

// analyze runs every enabled category concurrently and assembles the
// results in configuration order. Returns the intel report for the
// consensus prompt (nil when the category is absent or disabled).
func (o *Orchestrator) analyze(ctx context.Context, cfg *model.ScanConfiguration, target *model.ScanTarget, reach *model.ReachabilityResult, result *model.ScanResult) *intel.Report {
	runnerByID := make(map[string]checks.Runner, len(o.runners))
	for _, r := range o.runners {
		runnerByID[r.ID()] = r
	}

	type outcome struct {
		category string
		result   model.CategoryResult
		report   *intel.Report
	}

	var tasks []worker.Task[outcome]
	for i := range cfg.Categories {
		cat := &cfg.Categories[i]
		if !cat.Enabled {
			continue
		}

		switch {
		case cat.ID == model.CategoryThreatIntel && o.intel != nil:
			tasks = append(tasks, worker.Task[outcome]{
				Name: cat.ID,
				Run: func(ctx context.Context) (outcome, error) {
					report := o.intel.Analyze(ctx, target)
					return outcome{category: cat.ID, result: report.Category, report: report}, nil
				},
			})

		case runnerByID[cat.ID] != nil:
			runner := runnerByID[cat.ID]
			tasks = append(tasks, worker.Task[outcome]{
				Name: cat.ID,
				Run: func(ctx context.Context) (outcome, error) {
					if !reach.ModeAllows(runner.Modes()) {
						return outcome{category: cat.ID, result: checks.Skipped(cat, reach.Pipeline)}, nil
					}
					in := &checks.Input{Target: target, Reachability: reach, Category: cat, Now: o.now()}
					return outcome{category: cat.ID, result: runner.Run(ctx, in)}, nil
				},
			})

		default:
			// Enabled category without an implementation behind it.
			tasks = append(tasks, worker.Task[outcome]{
				Name: cat.ID,
				Run: func(ctx context.Context) (outcome, error) {
					return outcome{category: cat.ID,
						result: checks.Degraded(cat, cat.ID, fmt.Errorf("no analyzer available"))}, nil
				},
			})
		}
	}

	settled := worker.JoinAll(ctx, tasks, maxCategoryConcurrency)

	var report *intel.Report
	byID := make(map[string]model.CategoryResult, len(settled))
	for i, s := range settled {
		if s.Aborted() {
			// The scan deadline interrupted this category; it settles
			// as degraded and aggregation proceeds with what finished.
			cat := cfg.Category(tasks[i].Name)
			o.logger.Warn("category interrupted", "category", tasks[i].Name, "error", s.Err)
			byID[tasks[i].Name] = checks.Degraded(cat, tasks[i].Name, s.Err)
			continue
		}
		byID[s.Value.category] = s.Value.result
		if s.Value.report != nil {
			report = s.Value.report
		}
	}

	for i := range cfg.Categories {
		cat := &cfg.Categories[i]
		if !cat.Enabled {
			continue
		}
		result.Categories = append(result.Categories, byID[cat.ID])
	}
	return report
}

// runConsensus evaluates the AI panel. Consensus failures are absorbed
// as a neutral multiplier unless the configuration requires AI, in
// which case an InsufficientConsensusError fails the scan.
func (o *Orchestrator) runConsensus(ctx context.Context, cfg *model.ScanConfiguration, target *model.ScanTarget, reach *model.ReachabilityResult, report *intel.Report, result *model.ScanResult) error {
	if o.consensus == nil || o.consensus.ModelCount() == 0 {
		if cfg.AI.Required {
			return &model.InsufficientConsensusError{Responded: 0, Required: cfg.AI.MinimumModels}
		}
		result.Findings = append(result.Findings, aiUnavailableFinding("no AI models configured"))
		return nil
	}

	intelMatches := 0
	if report != nil {
		for _, m := range report.Matches {
			if m.Match {
				intelMatches++
			}
		}
	}

	req := ai.Request{
		Target:       target,
		BaseScore:    score.Base(result.Categories),
		MaxScore:     cfg.GlobalMax,
		Categories:   result.Categories,
		Reachability: reach,
		IntelMatches: intelMatches,
	}

	consensus, err := o.consensus.Evaluate(ctx, req)
	if err != nil {
		var insufficient *model.InsufficientConsensusError
		if cfg.AI.Required && errors.As(err, &insufficient) {
			return err
		}
		o.logger.Warn("consensus unavailable, proceeding with neutral multiplier",
			"scan_id", result.ScanID, "error", err)
		result.Findings = append(result.Findings, aiUnavailableFinding(err.Error()))
		return nil
	}

	result.Consensus = consensus
	if consensus.Disagreement {
		result.Findings = append(result.Findings, model.Finding{
			CheckID:  "ai_disagreement",
			Severity: model.SeverityLow,
			Description: fmt.Sprintf("AI models returned conflicting verdicts under unanimity, classification forced to %s",
				consensus.Verdict),
		})
	}
	o.logger.Info("consensus reached", "scan_id", result.ScanID,
		"verdict", consensus.Verdict, "multiplier", consensus.Multiplier,
		"responded", consensus.RespondedModels, "total", consensus.TotalModels)
	return nil
}

// aiUnavailableFinding records that the score carries no AI multiplier
// for this scan. It contributes no points.
func aiUnavailableFinding(reason string) model.Finding {
	return model.Finding{
		CheckID:     "ai_unavailable",
		Severity:    model.SeverityLow,
		Description: "AI consensus unavailable, score multiplier fixed at 1.0: " + reason,
		Degraded:    true,
	}
}
