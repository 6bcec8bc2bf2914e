package model

import "time"

// ReachabilityStatus classifies how a target responded to probing.
type ReachabilityStatus string

const (
	StatusOnline       ReachabilityStatus = "ONLINE"
	StatusOffline      ReachabilityStatus = "OFFLINE"
	StatusParked       ReachabilityStatus = "PARKED"
	StatusWAFChallenge ReachabilityStatus = "WAF_CHALLENGE"
	StatusSinkhole     ReachabilityStatus = "SINKHOLE"
)

// PipelineMode is the analysis depth selected from reachability.
type PipelineMode string

const (
	PipelineFull     PipelineMode = "FULL"     // Live site: every check runs
	PipelinePassive  PipelineMode = "PASSIVE"  // Offline: passive checks only
	PipelineParked   PipelineMode = "PARKED"   // Parking page detected
	PipelineWAF      PipelineMode = "WAF"      // Challenge page blocks content checks
	PipelineSinkhole PipelineMode = "SINKHOLE" // Sinkholed: automatic critical path
)

// ReachabilityResult is the outcome of one probe attempt. It is produced
// once per scan (or served from cache) and never mutated afterwards.
type ReachabilityResult struct {
	Status       ReachabilityStatus `json:"status"`
	Pipeline     PipelineMode       `json:"pipeline"`
	DNSResolved  bool               `json:"dns_resolved"`
	ResolvedIP   string             `json:"resolved_ip,omitempty"`
	TCPConnected bool               `json:"tcp_connected"`
	HTTPOk       bool               `json:"http_ok"`
	StatusCode   int                `json:"status_code,omitempty"`
	Body         string             `json:"body,omitempty"` // Capped HTTP body snapshot for content checks
	Headers      map[string]string  `json:"headers,omitempty"`
	Evidence     map[string]string  `json:"detection_evidence,omitempty"`
	ProbedAt     time.Time          `json:"probed_at"`
	Duration     time.Duration      `json:"duration"` // Nanoseconds, Go duration encoding
}

// ModeAllows reports whether a runner declared for the given modes may
// execute under this result's pipeline mode.
func (r *ReachabilityResult) ModeAllows(modes []PipelineMode) bool {
	for _, m := range modes {
		if m == r.Pipeline {
			return true
		}
	}
	return false
}
