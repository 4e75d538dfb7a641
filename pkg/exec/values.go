package exec

import (
	"context"

	"github.com/corvusdb/corvus/pkg/model"
)

// valuesOp is PhysicalValues' runtime counterpart: it yields its fixed
// rows verbatim, one per Next. A nil *model.ID in a row is UNDEF — the
// variable is simply absent from the emitted binding, leaving it
// unbound for anything downstream, matching SPARQL VALUES semantics.
type valuesOp struct {
	lifecycle
	vars []string
	rows []map[string]*model.ID
	pos  int
}

func newValuesOp(vars []string, rows []map[string]*model.ID) *valuesOp {
	return &valuesOp{vars: vars, rows: rows}
}

func (o *valuesOp) Open(ctx context.Context) error {
	o.pos = 0
	o.markReady()
	return nil
}

func (o *valuesOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if o.pos >= len(o.rows) {
		return o.exhaust()
	}
	row := o.rows[o.pos]
	o.pos++
	b := make(model.Binding, len(o.vars))
	for _, v := range o.vars {
		if id := row[v]; id != nil {
			b[v] = *id
		}
	}
	return o.emit(b)
}

func (o *valuesOp) Close() error {
	o.markClosed()
	return nil
}
