package ai

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/worker"
)

// verdictRank orders verdicts by severity so deterministic tie-breaking
// always prefers the more dangerous interpretation.
var verdictRank = map[model.Verdict]int{
	model.VerdictSafe:       0,
	model.VerdictSuspicious: 1,
	model.VerdictScam:       2,
	model.VerdictPhishing:   3,
	model.VerdictMalware:    4,
}

// verdictDirection maps a verdict onto the multiplier axis: negative
// pulls the score down, positive pushes it up.
var verdictDirection = map[model.Verdict]float64{
	model.VerdictSafe:       -1.0,
	model.VerdictSuspicious: 0.4,
	model.VerdictScam:       1.0,
	model.VerdictPhishing:   1.0,
	model.VerdictMalware:    1.0,
}

// boundModel binds one live provider to its configured weight and rank.
type boundModel struct {
	provider Provider
	cfg      model.ModelConfig
}

// Engine fans a request out to every registered model and reconciles
// the verdicts that arrive within the AI timeout. Reconciliation is a
// pure function of the verdicts and the configuration: the same inputs
// always produce the same ConsensusResult.
type Engine struct {
	cfg    model.AIConfig
	models []boundModel
	logger *slog.Logger
}

// NewEngine creates a consensus engine with no models registered.
func NewEngine(cfg model.AIConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Register adds a model to the panel. Registration order is the
// deterministic fan-out order.
func (e *Engine) Register(mc model.ModelConfig, p Provider) {
	e.models = append(e.models, boundModel{provider: p, cfg: mc})
}

// ModelCount reports the number of registered models.
func (e *Engine) ModelCount() int { return len(e.models) }

// Evaluate queries every model concurrently and reconciles the answers.
// Models still unanswered when the AI timeout expires are dropped, not
// waited for. An InsufficientConsensusError is returned when fewer than
// the configured minimum responded.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*model.ConsensusResult, error) {
	softCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	tasks := make([]worker.Task[*model.AIModelVerdict], len(e.models))
	for i, bm := range e.models {
		tasks[i] = worker.Task[*model.AIModelVerdict]{
			Name: bm.cfg.Name,
			Run: func(ctx context.Context) (*model.AIModelVerdict, error) {
				r := req
				r.Model = bm.cfg.Model
				return bm.provider.Classify(ctx, r)
			},
		}
	}

	settled := worker.JoinAllSettledBy(ctx, softCtx, tasks, len(tasks))

	var verdicts []model.AIModelVerdict
	var weights []float64
	for i, s := range settled {
		if s.Aborted() || s.Value == nil {
			e.logger.Warn("model did not answer", "model", e.models[i].cfg.Name, "error", s.Err)
			continue
		}
		v := *s.Value
		if v.Model == "" {
			v.Model = e.models[i].cfg.Name
		}
		verdicts = append(verdicts, v)
		weights = append(weights, e.models[i].cfg.Weight)
	}

	if len(verdicts) < e.cfg.MinimumModels {
		return nil, &model.InsufficientConsensusError{
			Responded: len(verdicts),
			Required:  e.cfg.MinimumModels,
		}
	}

	result := e.Reconcile(verdicts, weights)
	result.TotalModels = len(e.models)
	result.Degraded = len(verdicts) < len(e.models)
	return result, nil
}

// Reconcile derives the consensus verdict and score multiplier from a
// fixed set of responses. Exported because its determinism is the
// contract: callers may replay stored verdicts and expect an identical
// result.
func (e *Engine) Reconcile(verdicts []model.AIModelVerdict, weights []float64) *model.ConsensusResult {
	winner, agreement, disagreed := e.vote(verdicts, weights)

	confidence := 0.0
	if !disagreed {
		confidence = round2(meanConfidenceFor(verdicts, winner))
	}
	result := &model.ConsensusResult{
		Strategy:        e.cfg.Strategy,
		Verdict:         winner,
		Confidence:      confidence,
		RespondedModels: len(verdicts),
		TotalModels:     len(verdicts),
		AgreementRatio:  round2(agreement),
		Disagreement:    disagreed,
		Verdicts:        verdicts,
	}
	result.Multiplier = e.multiplier(verdicts, weights, agreement)
	return result
}

// vote applies the configured strategy and returns the winning verdict
// with the fraction of responders that voted for it. The third return
// is true only when a unanimity requirement was broken and the verdict
// is the conservative fallback rather than any model's answer.
func (e *Engine) vote(verdicts []model.AIModelVerdict, weights []float64) (model.Verdict, float64, bool) {
	counts := make(map[model.Verdict]int)
	scores := make(map[model.Verdict]float64)
	for i, v := range verdicts {
		counts[v.Verdict]++
		scores[v.Verdict] += weights[i] * v.Confidence
	}

	agreementFor := func(w model.Verdict) float64 {
		return float64(counts[w]) / float64(len(verdicts))
	}

	switch e.cfg.Strategy {
	case model.StrategyUnanimous:
		if len(counts) == 1 {
			return verdicts[0].Verdict, 1.0, false
		}
		// Disagreement under a unanimity requirement is itself a
		// signal: classify as suspicious rather than pick a side.
		return model.VerdictSuspicious, agreementFor(model.VerdictSuspicious), true

	case model.StrategyMajority:
		best := pickMostVoted(counts)
		return best, agreementFor(best), false

	case model.StrategyHighestConfidence:
		idx := 0
		for i, v := range verdicts {
			if v.Confidence > verdicts[idx].Confidence ||
				(v.Confidence == verdicts[idx].Confidence &&
					verdictRank[v.Verdict] > verdictRank[verdicts[idx].Verdict]) {
				idx = i
			}
		}
		return verdicts[idx].Verdict, agreementFor(verdicts[idx].Verdict), false

	default: // weighted_vote
		best := pickHeaviest(scores)
		return best, agreementFor(best), false
	}
}

// multiplier turns verdicts into the final score multiplier. Each
// responder contributes 1.0 plus its verdict direction scaled by its
// confidence; the configured method combines them, the disagreement
// penalty shrinks the deviation from neutral, and the result clamps to
// the configured range at two decimals.
func (e *Engine) multiplier(verdicts []model.AIModelVerdict, weights []float64, agreement float64) float64 {
	perModel := make([]float64, len(verdicts))
	for i, v := range verdicts {
		perModel[i] = 1.0 + verdictDirection[v.Verdict]*v.Confidence*0.5
	}

	var combined float64
	switch e.cfg.MultiplierMethod {
	case model.MultiplierMax:
		combined = 1.0
		for _, m := range perModel {
			if math.Abs(m-1.0) > math.Abs(combined-1.0) {
				combined = m
			}
		}
	case model.MultiplierWeighted:
		var sum, weightTotal float64
		for i, m := range perModel {
			sum += m * weights[i]
			weightTotal += weights[i]
		}
		if weightTotal > 0 {
			combined = sum / weightTotal
		} else {
			combined = 1.0
		}
	default: // average
		var sum float64
		for _, m := range perModel {
			sum += m
		}
		combined = sum / float64(len(perModel))
	}

	if e.cfg.PenalizeDisagreement && agreement < 1.0 {
		combined = 1.0 + (combined-1.0)*(1.0-e.cfg.DisagreementPenalty*(1.0-agreement))
	}

	if combined < e.cfg.MinMultiplier {
		combined = e.cfg.MinMultiplier
	}
	if combined > e.cfg.MaxMultiplier {
		combined = e.cfg.MaxMultiplier
	}
	return round2(combined)
}

// pickHeaviest returns the verdict with the largest accumulated score,
// breaking ties toward the more severe verdict.
func pickHeaviest(scores map[model.Verdict]float64) model.Verdict {
	type entry struct {
		verdict model.Verdict
		weight  float64
	}
	entries := make([]entry, 0, len(scores))
	for v, w := range scores {
		entries = append(entries, entry{v, w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return verdictRank[entries[i].verdict] > verdictRank[entries[j].verdict]
	})
	return entries[0].verdict
}

func pickMostVoted(counts map[model.Verdict]int) model.Verdict {
	scores := make(map[model.Verdict]float64, len(counts))
	for v, c := range counts {
		scores[v] = float64(c)
	}
	return pickHeaviest(scores)
}

func meanConfidenceFor(verdicts []model.AIModelVerdict, winner model.Verdict) float64 {
	var sum float64
	var n int
	for _, v := range verdicts {
		if v.Verdict == winner {
			sum += v.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
