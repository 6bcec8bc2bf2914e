package model

import "time"

// ScanState tracks the orchestrator's progress through a scan.
type ScanState string

const (
	StateInitiated   ScanState = "INITIATED"
	StateProbing     ScanState = "PROBING"
	StateAnalyzing   ScanState = "ANALYZING"
	StateConsensus   ScanState = "CONSENSUS"
	StateAggregating ScanState = "AGGREGATING"
	StateCompleted   ScanState = "COMPLETED"
	StateFailed      ScanState = "FAILED"
)

// RiskLevel is the classification of a final score against the
// configured threshold table.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ScanResult is the complete, immutable outcome of one scan. Its
// category list contains exactly one entry per enabled category, failed
// checks included (as zero-score placeholders with a degraded finding).
type ScanResult struct {
	ScanID       string              `json:"scan_id"`
	Target       ScanTarget          `json:"target"`
	ConfigID     string              `json:"config_id"`
	State        ScanState           `json:"state"`
	Reachability *ReachabilityResult `json:"reachability"`
	Categories   []CategoryResult    `json:"categories"`
	Consensus    *ConsensusResult    `json:"consensus,omitempty"`
	Findings     []Finding           `json:"findings,omitempty"` // Scan-level findings with no home category
	BaseScore    int                 `json:"base_score"`
	FinalScore   int                 `json:"final_score"`
	RiskLevel    RiskLevel           `json:"risk_level"`
	Cached       bool                `json:"cached,omitempty"` // Served from the result cache
	StartedAt    time.Time           `json:"started_at"`
	CompletedAt  time.Time           `json:"completed_at"`
	Duration     time.Duration       `json:"duration"` // Nanoseconds, Go duration encoding
}

// TopFindings returns up to n findings across all categories ordered as
// they appear (categories are already in configuration order, findings
// in descending contribution order within each).
func (r *ScanResult) TopFindings(n int) []Finding {
	var out []Finding
	for _, cat := range r.Categories {
		for _, f := range cat.Findings {
			if f.Points > 0 {
				out = append(out, f)
			}
			if len(out) >= n {
				return out
			}
		}
	}
	return out
}
