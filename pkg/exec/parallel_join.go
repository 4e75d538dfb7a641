package exec

import (
	"context"
	"sync"

	"github.com/corvusdb/corvus/pkg/model"
)

// parallelJoinOp is ParallelJoin's runtime counterpart: it builds the
// hash table once, then fans the probe side out across a bounded
// worker pool. Result order is unspecified, matching plan.ParallelJoin's
// doc comment. Grounded on the teacher's worker-pool shape used for
// bulk loading (cmd/trigo's batch import goroutines), adapted here to a
// probe-side fan-out over channels instead of a file-loading fan-out.
//
// Only JoinInner is parallelized: Optional/Minus's "did this probe row
// match anything" bookkeeping is inherently per-row sequential relative
// to emission order expectations, so ParallelJoin falls back to the
// sequential hashJoinOp for those kinds at build time (see Engine.Build
// in build.go).
type parallelJoinOp struct {
	lifecycle
	build, probe Operator
	sharedVars   []string
	workers      int

	buildRows []model.Binding
	table     map[uint64][]int

	results chan model.Binding
	errCh   chan error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func newParallelJoinOp(build, probe Operator, sharedVars []string, workers int) *parallelJoinOp {
	if workers < 1 {
		workers = 1
	}
	return &parallelJoinOp{build: build, probe: probe, sharedVars: sharedVars, workers: workers}
}

func (o *parallelJoinOp) Open(ctx context.Context) error {
	if err := o.build.Open(ctx); err != nil {
		return err
	}
	if err := o.probe.Open(ctx); err != nil {
		return err
	}
	o.table = make(map[uint64][]int)
	for o.build.Next(ctx) {
		row := o.build.Binding().Clone()
		idx := len(o.buildRows)
		o.buildRows = append(o.buildRows, row)
		if key, ok := sharedKey(row, o.sharedVars); ok {
			o.table[key] = append(o.table[key], idx)
		}
	}
	if err := o.build.Err(); err != nil {
		return err
	}
	o.markReady()
	return nil
}

// startWorkers drains the probe operator on a single feeder goroutine
// (Operators are not safe for concurrent Next calls) that distributes
// each row to the worker pool over a buffered channel; workers probe the
// shared, read-only hash table concurrently and push matches to results.
func (o *parallelJoinOp) startWorkers(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.results = make(chan model.Binding, o.workers*4)
	o.errCh = make(chan error, 1)
	rows := make(chan model.Binding, o.workers*4)

	o.wg.Add(o.workers)
	for i := 0; i < o.workers; i++ {
		go func() {
			defer o.wg.Done()
			for row := range rows {
				if key, ok := sharedKey(row, o.sharedVars); ok {
					for _, idx := range o.table[key] {
						if merged, ok := mergeBindings(row, o.buildRows[idx]); ok {
							select {
							case o.results <- merged:
							case <-ctx.Done():
								return
							}
						}
					}
				}
			}
		}()
	}

	go func() {
		o.wg.Wait()
		close(o.results)
	}()

	go func() {
		defer close(rows)
		for o.probe.Next(ctx) {
			select {
			case rows <- o.probe.Binding().Clone():
			case <-ctx.Done():
				return
			}
		}
		if err := o.probe.Err(); err != nil {
			select {
			case o.errCh <- err:
			default:
			}
		}
	}()
}

func (o *parallelJoinOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if !o.started {
		o.started = true
		o.startWorkers(ctx)
	}
	row, ok := <-o.results
	if !ok {
		select {
		case err := <-o.errCh:
			return o.fail(err)
		default:
		}
		return o.exhaust()
	}
	return o.emit(row)
}

func (o *parallelJoinOp) Close() error {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	berr := o.build.Close()
	perr := o.probe.Close()
	o.markClosed()
	if berr != nil {
		return berr
	}
	return perr
}
