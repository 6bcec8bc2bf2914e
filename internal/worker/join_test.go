package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJoinAll_PreservesSubmissionOrder(t *testing.T) {
	tasks := []Task[int]{
		{Name: "slow", Run: func(ctx context.Context) (int, error) {
			time.Sleep(30 * time.Millisecond)
			return 1, nil
		}},
		{Name: "fast", Run: func(ctx context.Context) (int, error) {
			return 2, nil
		}},
	}

	results := JoinAll(context.Background(), tasks, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "slow" || results[0].Value != 1 {
		t.Errorf("result[0] = %+v, want slow/1", results[0])
	}
	if results[1].Name != "fast" || results[1].Value != 2 {
		t.Errorf("result[1] = %+v, want fast/2", results[1])
	}
}

func TestJoinAll_FailureDoesNotCrashJoin(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[string]{
		{Name: "ok", Run: func(ctx context.Context) (string, error) { return "fine", nil }},
		{Name: "bad", Run: func(ctx context.Context) (string, error) { return "", boom }},
	}

	results := JoinAll(context.Background(), tasks, 0)
	if results[0].Aborted() {
		t.Errorf("ok task tagged aborted: %v", results[0].Err)
	}
	if !results[1].Aborted() || !errors.Is(results[1].Err, boom) {
		t.Errorf("bad task should settle with its error, got %+v", results[1])
	}
}

func TestJoinAll_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task[int]{
		{Name: "never", Run: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}},
	}

	results := JoinAll(ctx, tasks, 1)
	if !results[0].Aborted() {
		t.Error("cancelled task should settle with an error")
	}
}

func TestJoinAllSettledBy_TimeoutKeepsFinishedValues(t *testing.T) {
	softCtx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	tasks := []Task[string]{
		{Name: "quick", Run: func(ctx context.Context) (string, error) { return "done", nil }},
		{Name: "stuck", Run: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}},
	}

	results := JoinAllSettledBy(context.Background(), softCtx, tasks, 2)
	if results[0].Aborted() || results[0].Value != "done" {
		t.Errorf("finished task lost its value: %+v", results[0])
	}
	if !results[1].Aborted() {
		t.Errorf("stuck task should settle with the deadline error, got %+v", results[1])
	}
}

func TestLimiter_AllowAndOverride(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("source-a") {
		t.Error("first request should be admitted")
	}
	if l.Allow("source-a") {
		t.Error("second immediate request should be throttled")
	}

	// Independent upstreams do not share a bucket.
	if !l.Allow("source-b") {
		t.Error("different upstream should have its own bucket")
	}

	l.SetRate("source-c", 1000, 10)
	for i := 0; i < 5; i++ {
		if !l.Allow("source-c") {
			t.Fatalf("override rate should admit burst request %d", i)
		}
	}
}
