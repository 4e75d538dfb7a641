package exec

import (
	"context"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/model"
)

// bindOp is PhysicalBind's runtime counterpart, grounded on the
// teacher's bindIterator — but where the teacher's Binding() carried a
// TODO admitting it couldn't report evaluation errors from Next(), this
// one resolves and interns the function result inside Next, so a
// function error surfaces through Err() instead of being silently
// swallowed.
type bindOp struct {
	lifecycle
	input    Operator
	funcName string
	args     []*model.Expr
	outVar   string
	eval     *Evaluator
	funcs    FunctionTable
	d        *dict.Dictionary
}

func newBindOp(input Operator, funcName string, args []*model.Expr, outVar string, d *dict.Dictionary, funcs FunctionTable) *bindOp {
	return &bindOp{input: input, funcName: funcName, args: args, outVar: outVar, eval: &Evaluator{Dict: d}, funcs: funcs, d: d}
}

func (o *bindOp) Open(ctx context.Context) error {
	if err := o.input.Open(ctx); err != nil {
		return err
	}
	o.markReady()
	return nil
}

func (o *bindOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if !o.input.Next(ctx) {
		if err := o.input.Err(); err != nil {
			return o.fail(err)
		}
		return o.exhaust()
	}
	row := o.input.Binding()
	lex, err := o.eval.CallFunction(o.funcName, o.args, row, o.funcs)
	if err != nil {
		return o.fail(err)
	}
	id := o.d.Encode(lex)
	out := row.Extend(o.outVar, id)
	return o.emit(out)
}

func (o *bindOp) Close() error {
	err := o.input.Close()
	o.markClosed()
	return err
}
