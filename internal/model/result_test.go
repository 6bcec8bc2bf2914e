package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestScanResult_DurationJSONKeys(t *testing.T) {
	result := ScanResult{
		State:    StateCompleted,
		Duration: 1500 * time.Millisecond,
		Reachability: &ReachabilityResult{
			Status:   StatusOnline,
			Duration: 200 * time.Millisecond,
		},
		Consensus: &ConsensusResult{
			Verdicts: []AIModelVerdict{{Model: "a", Verdict: VerdictSafe, Latency: 80 * time.Millisecond}},
		},
	}

	raw, err := json.Marshal(&result)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)

	// Durations serialize as nanoseconds; a key suggesting another unit
	// would mislead every consumer of the JSON.
	for _, stale := range []string{"duration_ms", "latency_ms"} {
		if strings.Contains(body, stale) {
			t.Errorf("result JSON still carries the %q key", stale)
		}
	}
	for _, want := range []string{`"duration":1500000000`, `"duration":200000000`, `"latency":80000000`} {
		if !strings.Contains(body, want) {
			t.Errorf("result JSON missing %s:\n%s", want, body)
		}
	}
}
