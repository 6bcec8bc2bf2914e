package model

import "time"

// Verdict is an AI model's classification of a target.
type Verdict string

const (
	VerdictSafe       Verdict = "safe"
	VerdictSuspicious Verdict = "suspicious"
	VerdictPhishing   Verdict = "phishing"
	VerdictMalware    Verdict = "malware"
	VerdictScam       Verdict = "scam"
)

// KnownVerdicts lists every verdict label a provider may return.
var KnownVerdicts = []Verdict{VerdictSafe, VerdictSuspicious, VerdictPhishing, VerdictMalware, VerdictScam}

// AIModelVerdict is one model's response. Verdicts exist only for models
// that answered within the AI timeout; non-responders are absent.
type AIModelVerdict struct {
	Model      string        `json:"model"`
	Verdict    Verdict       `json:"verdict"`
	Confidence float64       `json:"confidence"` // 0.0-1.0
	Reasoning  string        `json:"reasoning,omitempty"`
	Latency    time.Duration `json:"latency"` // Nanoseconds, Go duration encoding
}

// ConsensusStrategy selects how disagreeing model verdicts are reconciled.
type ConsensusStrategy string

const (
	StrategyWeightedVote      ConsensusStrategy = "weighted_vote"
	StrategyUnanimous         ConsensusStrategy = "unanimous"
	StrategyMajority          ConsensusStrategy = "majority"
	StrategyHighestConfidence ConsensusStrategy = "highest_confidence"
)

// MultiplierMethod selects how the score multiplier is derived from
// the responding models' confidence values.
type MultiplierMethod string

const (
	MultiplierAverage  MultiplierMethod = "average"
	MultiplierWeighted MultiplierMethod = "weighted"
	MultiplierMax      MultiplierMethod = "max"
)

// ConsensusResult is the deterministic reconciliation of a fixed set of
// model verdicts. Given the same verdicts and configuration it is always
// byte-identical.
type ConsensusResult struct {
	Strategy        ConsensusStrategy `json:"strategy"`
	Verdict         Verdict           `json:"verdict"`
	Confidence      float64           `json:"confidence"`
	RespondedModels int               `json:"responded_models"`
	TotalModels     int               `json:"total_models"`
	AgreementRatio  float64           `json:"agreement_ratio"` // voters-for-winner / responders
	Multiplier      float64           `json:"multiplier"`      // Clamped to configured range, 2dp
	Degraded        bool              `json:"degraded,omitempty"`
	Disagreement    bool              `json:"disagreement,omitempty"` // Unanimity required but responders split
	Verdicts        []AIModelVerdict  `json:"verdicts,omitempty"`
}
