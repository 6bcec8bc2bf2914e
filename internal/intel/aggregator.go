package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sentra-scan/sentra/internal/cache"
	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/worker"
)

// sourceSlot binds a live Source to the weight and ordering knobs its
// configuration carries.
type sourceSlot struct {
	source   Source
	weight   int
	priority int
	timeout  time.Duration
}

// Aggregator fans a target out to every configured threat intelligence
// source, settles all answers, and folds them into one bounded category
// result. It never fails a scan: sources that error or time out abstain.
type Aggregator struct {
	slots    []sourceSlot
	internal *Blocklist
	cfg      model.IntelConfig
	category *model.CategoryConfig
	store    cache.Store
	ttl      time.Duration
	limiter  *worker.Limiter
	logger   *slog.Logger
}

// Report is the aggregator's full answer for one target: the bounded
// category plus the per-source evidence trail.
type Report struct {
	Category model.CategoryResult     `json:"category"`
	Matches  []model.ThreatIntelMatch `json:"matches"`
}

// New builds an aggregator from the active configuration. The blocklist
// may be nil when no internal list is loaded.
func New(cfg *model.ScanConfiguration, internal *Blocklist, store cache.Store, logger *slog.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	category := cfg.Category(model.CategoryThreatIntel)
	if category == nil {
		return nil, fmt.Errorf("configuration %q has no threat_intel category", cfg.ID)
	}

	agg := &Aggregator{
		internal: internal,
		cfg:      cfg.Intel,
		category: category,
		store:    store,
		ttl:      cfg.CacheTTL.Intel,
		limiter:  worker.NewLimiter(cfg.Intel.RatePerSecond, 5),
		logger:   logger,
	}

	for _, sc := range cfg.EnabledSources() {
		src, err := NewSource(sc, cfg.HTTP)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}
		agg.slots = append(agg.slots, sourceSlot{
			source:   src,
			weight:   sc.Weight,
			priority: sc.Priority,
			timeout:  sc.Timeout,
		})
	}
	return agg, nil
}

// Analyze checks every source for the target. The 24h answer cache is
// keyed by canonical URL; a cached report is returned verbatim.
func (a *Aggregator) Analyze(ctx context.Context, target *model.ScanTarget) *Report {
	if data, ok := a.store.Get(cache.NamespaceIntel, target.CanonicalURL); ok {
		var cached Report
		if err := json.Unmarshal(data, &cached); err == nil {
			a.logger.Debug("threat intel cache hit", "url", target.CanonicalURL)
			return &cached
		}
	}

	report := a.analyze(ctx, target)
	if data, err := json.Marshal(report); err == nil {
		_ = a.store.Set(cache.NamespaceIntel, target.CanonicalURL, data, a.ttl)
	}
	return report
}

func (a *Aggregator) analyze(ctx context.Context, target *model.ScanTarget) *Report {
	tasks := make([]worker.Task[*model.ThreatIntelMatch], len(a.slots))
	for i, slot := range a.slots {
		tasks[i] = worker.Task[*model.ThreatIntelMatch]{
			Name: slot.source.Name(),
			Run: func(ctx context.Context) (*model.ThreatIntelMatch, error) {
				if err := a.limiter.Wait(ctx, slot.source.Name()); err != nil {
					return nil, err
				}
				checkCtx, cancel := context.WithTimeout(ctx, slot.timeout)
				defer cancel()
				return slot.source.Check(checkCtx, target)
			},
		}
	}

	settled := worker.JoinAll(ctx, tasks, len(tasks))

	matches := make([]model.ThreatIntelMatch, 0, len(a.slots)+1)
	abstained := 0
	for i, s := range settled {
		if s.Aborted() || s.Value == nil {
			a.logger.Warn("threat intel source abstained",
				"source", a.slots[i].source.Name(), "error", s.Err)
			matches = append(matches, model.ThreatIntelMatch{
				Source:    a.slots[i].source.Name(),
				Abstained: true,
			})
			abstained++
			continue
		}
		m := *s.Value
		m.Weight = a.slots[i].weight
		matches = append(matches, m)
	}

	if a.internal != nil && a.internal.Len() > 0 {
		// Local memory lookup, outside the fan-out and the limiter.
		m, _ := a.internal.Check(ctx, target)
		m.Weight = a.cfg.InternalWeight
		matches = append(matches, *m)
	}

	return &Report{
		Category: a.fold(matches, abstained),
		Matches:  matches,
	}
}

// fold turns per-source answers into the bounded category result. A
// match contributes the full source weight; confidence qualifies the
// finding text, not the points. The sum clamps at the category maximum.
func (a *Aggregator) fold(matches []model.ThreatIntelMatch, abstained int) model.CategoryResult {
	res := model.CategoryResult{
		Category: a.category.ID,
		Label:    a.category.Label,
		MaxScore: a.category.MaxScore,
		Findings: []model.Finding{},
	}

	type contribution struct {
		match    model.ThreatIntelMatch
		points   int
		priority int
	}
	var contribs []contribution
	for i, m := range matches {
		if !m.Match {
			continue
		}
		points := m.Weight
		priority := len(a.slots) + 1 // Internal list sorts after externals on ties
		if i < len(a.slots) {
			priority = a.slots[i].priority
		}
		contribs = append(contribs, contribution{match: m, points: points, priority: priority})
	}

	sort.SliceStable(contribs, func(i, j int) bool {
		if contribs[i].points != contribs[j].points {
			return contribs[i].points > contribs[j].points
		}
		if contribs[i].priority != contribs[j].priority {
			return contribs[i].priority < contribs[j].priority
		}
		return contribs[i].match.Source < contribs[j].match.Source
	})

	for _, c := range contribs {
		res.Score += c.points
		res.Findings = append(res.Findings, model.Finding{
			CheckID:        "ti_" + c.match.Source,
			Severity:       model.SeverityForRatio(c.points, c.match.Weight),
			Points:         c.points,
			PointsPossible: c.match.Weight,
			Description: fmt.Sprintf("%s reports %s (confidence %d%%)",
				c.match.Source, c.match.ThreatType, c.match.Confidence),
			Evidence: c.match.Evidence,
		})
	}

	if len(contribs) == 0 {
		desc := "no threat intelligence source reports this URL"
		degraded := false
		if abstained > 0 && abstained == len(a.slots) {
			desc = "all external threat intelligence sources were unavailable"
			degraded = true
		}
		res.Findings = append(res.Findings, model.Finding{
			CheckID:        "ti_clean",
			Severity:       model.SeveritySafe,
			PointsPossible: a.category.MaxScore,
			Description:    desc,
			Degraded:       degraded,
		})
	}

	res.Clamp()
	return res
}
