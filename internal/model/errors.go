package model

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the orchestrator. Everything else degrades
// into findings inside a completed ScanResult.
var (
	// ErrScanCancelled is returned when the caller's context is cancelled;
	// no partial result is persisted.
	ErrScanCancelled = errors.New("scan cancelled by caller")

	// ErrProbeTimeout is returned when probing itself never finished:
	// without a reachability basis there is nothing to classify.
	ErrProbeTimeout = errors.New("probe timed out before reachability could be established")
)

// ValidationError marks a malformed input URL, rejected before probing.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scan target %q: %s", e.Input, e.Reason)
}

// ConfigurationError marks a missing or internally inconsistent scan
// configuration. It fails the scan before any work begins.
type ConfigurationError struct {
	ConfigID string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.ConfigID != "" {
		return fmt.Sprintf("configuration %q: %s", e.ConfigID, e.Reason)
	}
	return "configuration: " + e.Reason
}

// InsufficientConsensusError is returned when fewer than MinimumModels
// AI responses arrived. It only escalates to a scan failure when the
// configuration marks AI as required.
type InsufficientConsensusError struct {
	Responded int
	Required  int
}

func (e *InsufficientConsensusError) Error() string {
	return fmt.Sprintf("insufficient AI consensus: %d of %d required models responded", e.Responded, e.Required)
}
