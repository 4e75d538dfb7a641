package exec

import (
	"context"
	"sort"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/plan"
	"github.com/corvusdb/corvus/pkg/value"
)

// orderByOp is PhysicalOrderBy's runtime counterpart. It materializes
// Input fully, then sorts stably by Keys. The teacher's equivalent
// (buildSortedIterator, internal/sparql/executor) used a hand-rolled
// bubble sort over a []*store.Binding; this uses sort.SliceStable
// instead — same stability guarantee, O(n log n) instead of O(n^2).
type orderByOp struct {
	lifecycle
	input Operator
	keys  []plan.OrderKey
	d     *dict.Dictionary

	rows []model.Binding
	pos  int
}

func newOrderByOp(input Operator, keys []plan.OrderKey, d *dict.Dictionary) *orderByOp {
	return &orderByOp{input: input, keys: keys, d: d}
}

func (o *orderByOp) Open(ctx context.Context) error {
	if err := o.input.Open(ctx); err != nil {
		return err
	}
	for o.input.Next(ctx) {
		o.rows = append(o.rows, o.input.Binding().Clone())
	}
	if err := o.input.Err(); err != nil {
		return err
	}
	sort.SliceStable(o.rows, func(i, j int) bool {
		return o.less(o.rows[i], o.rows[j])
	})
	o.pos = 0
	o.markReady()
	return nil
}

func (o *orderByOp) less(a, b model.Binding) bool {
	for _, k := range o.keys {
		av, aok := o.decode(a, k.Variable)
		bv, bok := o.decode(b, k.Variable)
		if !aok || !bok {
			if aok != bok {
				return aok && !k.Descending
			}
			continue
		}
		cmp := value.Compare(av, bv)
		if cmp == 0 {
			continue
		}
		if k.Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

func (o *orderByOp) decode(b model.Binding, v string) (value.Value, bool) {
	id, ok := b[v]
	if !ok {
		return value.Value{}, false
	}
	lex, ok := o.d.Decode(id)
	if !ok {
		return value.Value{}, false
	}
	val, err := value.Parse(lex)
	if err != nil {
		return value.Value{}, false
	}
	return val, true
}

func (o *orderByOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if o.pos >= len(o.rows) {
		return o.exhaust()
	}
	row := o.rows[o.pos]
	o.pos++
	return o.emit(row)
}

func (o *orderByOp) Close() error {
	err := o.input.Close()
	o.markClosed()
	return err
}
