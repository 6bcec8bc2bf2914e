package model

// Severity grades a single finding.
type Severity string

const (
	SeveritySafe     Severity = "SAFE"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Finding is one itemized, explainable unit of evidence contributing
// points to a category.
type Finding struct {
	CheckID        string                 `json:"check_id"`
	Severity       Severity               `json:"severity"`
	Points         int                    `json:"points"`          // Points awarded
	PointsPossible int                    `json:"points_possible"` // Maximum this check could award
	Description    string                 `json:"description"`
	Evidence       map[string]interface{} `json:"evidence,omitempty"` // Opaque supporting data
	Degraded       bool                   `json:"degraded,omitempty"` // True when the check could not obtain live data
}

// CategoryResult is the bounded sub-score of one risk analysis category.
// Score is always within [0, MaxScore].
type CategoryResult struct {
	Category string    `json:"category"`
	Label    string    `json:"label"`
	Score    int       `json:"score"`
	MaxScore int       `json:"max_score"`
	Findings []Finding `json:"findings"`
	Skipped  bool      `json:"skipped,omitempty"` // Pipeline mode excluded this category
}

// Clamp bounds the score to [0, MaxScore]. Runners call this once after
// summing sub-check points.
func (c *CategoryResult) Clamp() {
	if c.Score < 0 {
		c.Score = 0
	}
	if c.Score > c.MaxScore {
		c.Score = c.MaxScore
	}
}

// SeverityForRatio maps an awarded/possible ratio onto a severity grade.
// Used by runners so band tables only carry points, not severities.
func SeverityForRatio(points, possible int) Severity {
	if points <= 0 || possible <= 0 {
		return SeveritySafe
	}
	ratio := float64(points) / float64(possible)
	switch {
	case ratio >= 1.0:
		return SeverityCritical
	case ratio >= 0.75:
		return SeverityHigh
	case ratio >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
