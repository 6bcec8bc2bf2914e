// Package score folds bounded category results and the consensus
// multiplier into the final risk score and its classification. Every
// function here is pure; the numbers are fully reproducible from a
// stored scan result.
package score

import (
	"math"

	"github.com/sentra-scan/sentra/internal/model"
)

// Base sums the clamped category scores. Skipped categories contribute
// zero through their placeholder, so the sum needs no special cases.
func Base(categories []model.CategoryResult) int {
	total := 0
	for _, cat := range categories {
		total += cat.Score
	}
	return total
}

// Final applies the consensus multiplier to the base score, rounding
// half away from zero, and clamps to [0, globalMax].
func Final(base int, multiplier float64, globalMax int) int {
	final := int(math.Round(float64(base) * multiplier))
	if final < 0 {
		final = 0
	}
	if globalMax > 0 && final > globalMax {
		final = globalMax
	}
	return final
}

// Classify maps a final score onto a risk level, highest threshold
// first. Threshold values themselves classify upward: a score exactly
// at Critical is CRITICAL.
func Classify(final int, t model.RiskThresholds) model.RiskLevel {
	switch {
	case final >= t.Critical:
		return model.RiskCritical
	case final >= t.High:
		return model.RiskHigh
	case final >= t.Medium:
		return model.RiskMedium
	case final >= t.Low:
		return model.RiskLow
	default:
		return model.RiskSafe
	}
}

// Apply computes the final score and risk level in one step, writing
// them onto the result. The multiplier defaults to neutral when no
// consensus exists.
func Apply(result *model.ScanResult, cfg *model.ScanConfiguration) {
	result.BaseScore = Base(result.Categories)

	multiplier := 1.0
	if result.Consensus != nil {
		multiplier = result.Consensus.Multiplier
	}

	result.FinalScore = Final(result.BaseScore, multiplier, cfg.GlobalMax)
	result.RiskLevel = Classify(result.FinalScore, cfg.Thresholds)
}
