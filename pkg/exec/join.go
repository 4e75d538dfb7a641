package exec

import (
	"context"

	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/plan"
)

// nestedLoopJoinOp is NestedLoopJoin's runtime counterpart, grounded on
// the teacher's nestedLoopJoinIterator: materialize the right side once,
// then for each left row re-scan it. Left is always the outer/mandatory
// stream and Right the dependent one, so OPTIONAL/MINUS orientation is
// preserved regardless of which side the optimizer found cheaper.
type nestedLoopJoinOp struct {
	lifecycle
	left, right Operator
	kind        plan.JoinKind

	rightRows  []model.Binding
	leftRow    model.Binding
	leftHasRow bool
	leftMatch  bool
	rightIdx   int
	unionPhase int
}

func newNestedLoopJoinOp(left, right Operator, kind plan.JoinKind) *nestedLoopJoinOp {
	return &nestedLoopJoinOp{left: left, right: right, kind: kind}
}

func (o *nestedLoopJoinOp) Open(ctx context.Context) error {
	if err := o.left.Open(ctx); err != nil {
		return err
	}
	if err := o.right.Open(ctx); err != nil {
		return err
	}
	if o.kind != plan.JoinUnion {
		for o.right.Next(ctx) {
			o.rightRows = append(o.rightRows, o.right.Binding().Clone())
		}
		if err := o.right.Err(); err != nil {
			return err
		}
	}
	o.markReady()
	return nil
}

func (o *nestedLoopJoinOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if err := checkCancelled(ctx); err != nil {
		return o.fail(err)
	}
	switch o.kind {
	case plan.JoinUnion:
		return o.nextUnion(ctx)
	case plan.JoinMinus:
		return o.nextMinus(ctx)
	case plan.JoinOptional:
		return o.nextOptional(ctx)
	default:
		return o.nextInner(ctx)
	}
}

func (o *nestedLoopJoinOp) nextInner(ctx context.Context) bool {
	for {
		if !o.leftHasRow {
			if !o.left.Next(ctx) {
				if err := o.left.Err(); err != nil {
					return o.fail(err)
				}
				return o.exhaust()
			}
			o.leftRow = o.left.Binding().Clone()
			o.leftHasRow = true
			o.rightIdx = 0
		}
		for o.rightIdx < len(o.rightRows) {
			r := o.rightRows[o.rightIdx]
			o.rightIdx++
			if merged, ok := mergeBindings(o.leftRow, r); ok {
				return o.emit(merged)
			}
		}
		o.leftHasRow = false
	}
}

func (o *nestedLoopJoinOp) nextOptional(ctx context.Context) bool {
	for {
		if !o.leftHasRow {
			if !o.left.Next(ctx) {
				if err := o.left.Err(); err != nil {
					return o.fail(err)
				}
				return o.exhaust()
			}
			o.leftRow = o.left.Binding().Clone()
			o.leftHasRow = true
			o.rightIdx = 0
			o.leftMatch = false
		}
		for o.rightIdx < len(o.rightRows) {
			r := o.rightRows[o.rightIdx]
			o.rightIdx++
			if merged, ok := mergeBindings(o.leftRow, r); ok {
				o.leftMatch = true
				return o.emit(merged)
			}
		}
		o.leftHasRow = false
		if !o.leftMatch {
			return o.emit(o.leftRow)
		}
	}
}

func (o *nestedLoopJoinOp) nextMinus(ctx context.Context) bool {
	for o.left.Next(ctx) {
		row := o.left.Binding().Clone()
		compatible := false
		for _, r := range o.rightRows {
			if _, ok := mergeBindings(row, r); ok {
				compatible = true
				break
			}
		}
		if !compatible {
			return o.emit(row)
		}
	}
	if err := o.left.Err(); err != nil {
		return o.fail(err)
	}
	return o.exhaust()
}

func (o *nestedLoopJoinOp) nextUnion(ctx context.Context) bool {
	if o.unionPhase == 0 {
		if o.left.Next(ctx) {
			return o.emit(o.left.Binding().Clone())
		}
		if err := o.left.Err(); err != nil {
			return o.fail(err)
		}
		o.unionPhase = 1
	}
	if o.right.Next(ctx) {
		return o.emit(o.right.Binding().Clone())
	}
	if err := o.right.Err(); err != nil {
		return o.fail(err)
	}
	return o.exhaust()
}

func (o *nestedLoopJoinOp) Close() error {
	lerr := o.left.Close()
	rerr := o.right.Close()
	o.markClosed()
	if lerr != nil {
		return lerr
	}
	return rerr
}
