package exec

import (
	"context"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/model"
)

// selectionOp is PhysicalSelection's runtime counterpart, grounded on
// the teacher's filterIterator. A row whose condition errors (e.g. an
// unbound variable under a non-OPTIONAL pattern, or a type error) is
// dropped rather than aborting the whole scan, matching SPARQL FILTER's
// error-tolerant semantics.
type selectionOp struct {
	lifecycle
	input     Operator
	condition *model.Expr
	eval      *Evaluator
}

func newSelectionOp(input Operator, cond *model.Expr, d *dict.Dictionary) *selectionOp {
	return &selectionOp{input: input, condition: cond, eval: &Evaluator{Dict: d}}
}

func (o *selectionOp) Open(ctx context.Context) error {
	if err := o.input.Open(ctx); err != nil {
		return err
	}
	o.markReady()
	return nil
}

func (o *selectionOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	for o.input.Next(ctx) {
		row := o.input.Binding()
		ok, err := o.eval.EBV(o.condition, row)
		if err != nil {
			continue
		}
		if ok {
			return o.emit(row)
		}
	}
	if err := o.input.Err(); err != nil {
		return o.fail(err)
	}
	return o.exhaust()
}

func (o *selectionOp) Close() error {
	err := o.input.Close()
	o.markClosed()
	return err
}
