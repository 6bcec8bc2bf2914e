package model

import "time"

// ThreatIntelMatch is the answer one threat intelligence source gave for
// a target. Exactly one is recorded per configured source per scan,
// including abstentions.
type ThreatIntelMatch struct {
	Source     string                 `json:"source"`
	Match      bool                   `json:"match"`
	ThreatType string                 `json:"threat_type,omitempty"`
	Confidence int                    `json:"confidence"` // 0-100
	Weight     int                    `json:"weight"`     // Points this match contributed
	FirstSeen  *time.Time             `json:"first_seen,omitempty"`
	Abstained  bool                   `json:"abstained,omitempty"` // Timeout/error treated as no-match
	Evidence   map[string]interface{} `json:"evidence,omitempty"`
}
