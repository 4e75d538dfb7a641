package stream

import (
	"context"
	"sync"
	"time"

	"github.com/corvusdb/corvus/pkg/model"
)

// Eval is a continuous query's body: it runs against the window's
// current snapshot and returns the matched triples. Callers typically
// close over pkg/exec to run a real WHERE-clause pattern against the
// window's contents treated as an ephemeral store; Eval itself is
// store-agnostic so pkg/stream has no import-cycle dependency on
// pkg/exec.
type Eval func(snapshot []model.Triple) []model.Triple

// ContinuousQuery registers a REGISTER [R|I|D]STREAM query against a
// window: on every tick (or explicit Evaluate call) it reruns eval over
// the window's current snapshot and emits the R2S-converted diff
// against the previous tick's result.
type ContinuousQuery struct {
	Window *Window
	Mode   R2SMode
	Eval   Eval

	mu   sync.Mutex
	prev []model.Triple

	cancel context.CancelFunc
	done   chan struct{}
}

// Evaluate runs one tick manually — the deterministic-test counterpart
// to the ticker-driven Start loop, and the mechanism REGISTER's
// explicit "or on explicit evaluate" clause names.
func (q *ContinuousQuery) Evaluate() []model.Triple {
	q.mu.Lock()
	defer q.mu.Unlock()
	curr := q.Eval(q.Window.Snapshot())
	out := r2sConvert(q.Mode, q.prev, curr)
	q.prev = curr
	return out
}

// Start runs Evaluate on a cooperative loop driven by time.Ticker at
// the given slide interval, delivering each tick's
// output on the returned channel. The loop is a dedicated goroutine
// that yields between ticks (spec.md §5), never blocking the caller;
// Stop ends it and closes the channel.
func (q *ContinuousQuery) Start(ctx context.Context, slide time.Duration) <-chan []model.Triple {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.done = make(chan struct{})
	out := make(chan []model.Triple)

	go func() {
		defer close(out)
		defer close(q.done)
		ticker := time.NewTicker(slide)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result := q.Evaluate()
				select {
				case out <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Stop ends a Start loop (the streaming engine's stop_stream contract)
// and waits for the loop goroutine to exit.
func (q *ContinuousQuery) Stop() {
	if q.cancel == nil {
		return
	}
	q.cancel()
	<-q.done
}
