package exec

import (
	"context"
	"strconv"
	"strings"

	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/plan"
	"github.com/zeebo/xxh3"
)

// HashJoinAccelerator is the GPU-offload contract point: an
// implementation may probe a build table against a batch of probe rows
// using hardware acceleration. No accelerator ships with this package
// (GPU offload is a non-goal); hashJoinOp always falls back to the CPU
// path when Accelerator is nil.
type HashJoinAccelerator interface {
	// Probe returns, for each row in probeRows, the indices into
	// buildRows it is compatible with on sharedVars.
	Probe(ctx context.Context, buildRows []model.Binding, probeRows []model.Binding, sharedVars []string) ([][]int, error)
}

// hashJoinOp is HashJoin's runtime counterpart. Grounded on the
// teacher's nestedLoopJoinIterator shape (materialize-then-probe) but
// replacing its full cross-product scan with a hash table keyed on
// SharedVars, per spec.md's named HashJoin cost model.
//
// For Inner joins Build/Probe may be either original side (the
// optimizer already picked the smaller one to build). For
// Optional/Minus, Build is always the dependent (original Right) side
// and Probe is always the mandatory (original Left) side — see
// pkg/optimizer's planJoin, which never swaps those two kinds.
type hashJoinOp struct {
	lifecycle
	build, probe Operator
	sharedVars   []string
	kind         plan.JoinKind
	accelerator  HashJoinAccelerator

	buildRows []model.Binding
	table     map[uint64][]int

	probeRow    model.Binding
	probeHasRow bool
	probeMatch  bool
	candidates  []int
	candIdx     int

	// accelerated results, populated once by the accelerator path
	// instead of being probed row by row.
	acceleratedRows []model.Binding
	acceleratedPos  int
	usingAccel      bool
}

func newHashJoinOp(build, probe Operator, sharedVars []string, kind plan.JoinKind, accel HashJoinAccelerator) *hashJoinOp {
	return &hashJoinOp{build: build, probe: probe, sharedVars: sharedVars, kind: kind, accelerator: accel}
}

func (o *hashJoinOp) Open(ctx context.Context) error {
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

	// Only JoinInner is offloaded: Optional/Minus need to know, per
	// probe row, whether ANY candidate matched, which the batch
	// Probe contract doesn't report incrementally enough to short
	// circuit the "no match -> emit alone" branch correctly.
	if o.accelerator != nil && o.kind == plan.JoinInner {
		var probeRows []model.Binding
		for o.probe.Next(ctx) {
			probeRows = append(probeRows, o.probe.Binding().Clone())
		}
		if err := o.probe.Err(); err != nil {
			return err
		}
		matches, err := o.accelerator.Probe(ctx, o.buildRows, probeRows, o.sharedVars)
		if err != nil {
			return err
		}
		for i, row := range probeRows {
			for _, idx := range matches[i] {
				if merged, ok := mergeBindings(row, o.buildRows[idx]); ok {
					o.acceleratedRows = append(o.acceleratedRows, merged)
				}
			}
		}
		o.usingAccel = true
	}

	o.markReady()
	return nil
}

func (o *hashJoinOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if err := checkCancelled(ctx); err != nil {
		return o.fail(err)
	}
	if o.usingAccel {
		if o.acceleratedPos >= len(o.acceleratedRows) {
			return o.exhaust()
		}
		row := o.acceleratedRows[o.acceleratedPos]
		o.acceleratedPos++
		return o.emit(row)
	}
	for {
		if o.probeHasRow {
			for o.candIdx < len(o.candidates) {
				build := o.buildRows[o.candidates[o.candIdx]]
				o.candIdx++
				if merged, ok := mergeBindings(o.probeRow, build); ok {
					o.probeMatch = true
					if o.kind == plan.JoinMinus {
						continue
					}
					return o.emit(merged)
				}
			}
			if o.kind == plan.JoinOptional && !o.probeMatch {
				o.probeHasRow = false
				return o.emit(o.probeRow)
			}
			if o.kind == plan.JoinMinus && !o.probeMatch {
				o.probeHasRow = false
				return o.emit(o.probeRow)
			}
			o.probeHasRow = false
			continue
		}
		if !o.probe.Next(ctx) {
			if err := o.probe.Err(); err != nil {
				return o.fail(err)
			}
			return o.exhaust()
		}
		o.probeRow = o.probe.Binding().Clone()
		o.probeHasRow = true
		o.probeMatch = false
		o.candidates = nil
		o.candIdx = 0
		if key, ok := sharedKey(o.probeRow, o.sharedVars); ok {
			o.candidates = o.table[key]
		}
	}
}

func (o *hashJoinOp) Close() error {
	berr := o.build.Close()
	perr := o.probe.Close()
	o.markClosed()
	if berr != nil {
		return berr
	}
	return perr
}

// sharedKey hashes a row's values at sharedVars, in declared order. ok
// is false if any shared variable is unbound in row — an unbound shared
// variable can never match (SPARQL joins never unify on an unbound
// value), so the row contributes no hash bucket entry.
func sharedKey(row model.Binding, sharedVars []string) (uint64, bool) {
	var sb strings.Builder
	for _, v := range sharedVars {
		id, ok := row[v]
		if !ok {
			return 0, false
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
		sb.WriteByte('|')
	}
	return xxh3.HashString(sb.String()), true
}
