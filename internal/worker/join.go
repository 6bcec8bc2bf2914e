package worker

import (
	"context"
	"sync"
)

// Task is one unit of fan-out work. Run must honor ctx cancellation.
type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Settled is the tagged outcome of one task. Exactly one Settled exists
// per submitted task regardless of how the task ended; a task that
// errored or was cancelled carries Err and a zero Value (an abstention,
// never a crash of the join).
type Settled[T any] struct {
	Name  string
	Value T
	Err   error
}

// Aborted reports whether the task never produced a usable value.
func (s Settled[T]) Aborted() bool { return s.Err != nil }

// JoinAll runs every task concurrently, at most maxConcurrent at a time,
// and blocks until all have settled. Results keep submission order, so
// non-deterministic completion order never leaks into aggregation.
// Cancellation of ctx settles the remaining tasks with ctx.Err().
func JoinAll[T any](ctx context.Context, tasks []Task[T], maxConcurrent int) []Settled[T] {
	if maxConcurrent <= 0 {
		maxConcurrent = len(tasks)
	}

	results := make([]Settled[T], len(tasks))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t Task[T]) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = Settled[T]{Name: t.Name, Err: ctx.Err()}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			value, err := t.Run(ctx)
			results[idx] = Settled[T]{Name: t.Name, Value: value, Err: err}
		}(i, task)
	}

	wg.Wait()
	return results
}

// JoinAllSettledBy is JoinAll with a secondary deadline: tasks still
// running when softCtx expires settle with softCtx's error while tasks
// that already finished keep their values. Used for the AI fan-out,
// which proceeds once the per-call timeout elapses instead of waiting
// indefinitely for a slow model.
func JoinAllSettledBy[T any](ctx, softCtx context.Context, tasks []Task[T], maxConcurrent int) []Settled[T] {
	if maxConcurrent <= 0 {
		maxConcurrent = len(tasks)
	}

	results := make([]Settled[T], len(tasks))
	done := make(chan int, len(tasks))
	sem := make(chan struct{}, maxConcurrent)

	for i, task := range tasks {
		go func(idx int, t Task[T]) {
			select {
			case <-softCtx.Done():
				results[idx] = Settled[T]{Name: t.Name, Err: softCtx.Err()}
				done <- idx
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			value, err := t.Run(softCtx)
			results[idx] = Settled[T]{Name: t.Name, Value: value, Err: err}
			done <- idx
		}(i, task)
	}

	settled := make(map[int]bool, len(tasks))
	for len(settled) < len(tasks) {
		select {
		case idx := <-done:
			settled[idx] = true
		case <-softCtx.Done():
			// Mark everything still in flight as timed out; the
			// goroutines finish in the background and their late
			// writes are discarded with the copied slice below.
			out := make([]Settled[T], len(tasks))
			for i := range tasks {
				if settled[i] {
					out[i] = results[i]
				} else {
					out[i] = Settled[T]{Name: tasks[i].Name, Err: softCtx.Err()}
				}
			}
			return out
		case <-ctx.Done():
			out := make([]Settled[T], len(tasks))
			for i := range tasks {
				if settled[i] {
					out[i] = results[i]
				} else {
					out[i] = Settled[T]{Name: tasks[i].Name, Err: ctx.Err()}
				}
			}
			return out
		}
	}

	return results
}
