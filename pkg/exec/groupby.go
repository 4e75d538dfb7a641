package exec

import (
	"context"
	"strconv"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/plan"
	"github.com/corvusdb/corvus/pkg/value"
)

// groupByOp is PhysicalGroupBy's runtime counterpart. The teacher never
// implemented aggregation (its parser/evaluator stop at FILTER/BIND), so
// this is built fresh in the executor's materialize-then-emit idiom
// rather than adapted from a teacher iterator.
type groupByOp struct {
	lifecycle
	input      Operator
	groupVars  []string
	aggregates []plan.Aggregate
	d          *dict.Dictionary

	results []model.Binding
	pos     int
}

func newGroupByOp(input Operator, groupVars []string, aggregates []plan.Aggregate, d *dict.Dictionary) *groupByOp {
	return &groupByOp{input: input, groupVars: groupVars, aggregates: aggregates, d: d}
}

type aggAccumulator struct {
	count int
	sum   float64
	min   *value.Value
	max   *value.Value
	isInt bool
}

func (o *groupByOp) Open(ctx context.Context) error {
	if err := o.input.Open(ctx); err != nil {
		return err
	}

	order := []uint64{}
	groupKey := make(map[string]model.Binding)
	accs := make(map[uint64][]*aggAccumulator)

	for o.input.Next(ctx) {
		row := o.input.Binding()
		key := make(model.Binding, len(o.groupVars))
		for _, v := range o.groupVars {
			if id, ok := row[v]; ok {
				key[v] = id
			}
		}
		sig := signature(key)
		if _, seen := groupKey[strconv.FormatUint(sig, 10)]; !seen {
			groupKey[strconv.FormatUint(sig, 10)] = key
			order = append(order, sig)
			accs[sig] = make([]*aggAccumulator, len(o.aggregates))
			for i := range accs[sig] {
				accs[sig][i] = &aggAccumulator{isInt: true}
			}
		}
		for i, agg := range o.aggregates {
			o.accumulate(accs[sig][i], agg, row)
		}
	}
	if err := o.input.Err(); err != nil {
		return err
	}

	for _, sig := range order {
		out := groupKey[strconv.FormatUint(sig, 10)].Clone()
		for i, agg := range o.aggregates {
			id := o.finalize(accs[sig][i], agg)
			out[agg.OutVar] = id
		}
		o.results = append(o.results, out)
	}

	o.pos = 0
	o.markReady()
	return nil
}

func (o *groupByOp) accumulate(acc *aggAccumulator, agg plan.Aggregate, row model.Binding) {
	if agg.Func == plan.AggCount && agg.Variable == "" {
		acc.count++
		return
	}
	id, ok := row[agg.Variable]
	if !ok {
		return
	}
	acc.count++
	lex, ok := o.d.Decode(id)
	if !ok {
		return
	}
	v, err := value.Parse(lex)
	if err != nil || !v.IsNumeric() {
		if agg.Func == plan.AggMin || agg.Func == plan.AggMax {
			o.updateMinMax(acc, v)
		}
		return
	}
	acc.sum += v.Float
	if v.Kind != value.KindInteger {
		acc.isInt = false
	}
	o.updateMinMax(acc, v)
}

func (o *groupByOp) updateMinMax(acc *aggAccumulator, v value.Value) {
	if acc.min == nil || value.Compare(v, *acc.min) < 0 {
		vv := v
		acc.min = &vv
	}
	if acc.max == nil || value.Compare(v, *acc.max) > 0 {
		vv := v
		acc.max = &vv
	}
}

func (o *groupByOp) finalize(acc *aggAccumulator, agg plan.Aggregate) model.ID {
	var lex string
	switch agg.Func {
	case plan.AggCount:
		lex = value.Integer(int64(acc.count))
	case plan.AggSum:
		lex = o.numeric(acc.sum, acc.isInt)
	case plan.AggAvg:
		if acc.count == 0 {
			lex = value.Double(0)
		} else {
			lex = value.Double(acc.sum / float64(acc.count))
		}
	case plan.AggMin:
		if acc.min != nil {
			lex = acc.min.Lexical()
		} else {
			lex = value.Integer(0)
		}
	case plan.AggMax:
		if acc.max != nil {
			lex = acc.max.Lexical()
		} else {
			lex = value.Integer(0)
		}
	}
	return o.d.Encode(lex)
}

func (o *groupByOp) numeric(f float64, isInt bool) string {
	if isInt && f == float64(int64(f)) {
		return value.Integer(int64(f))
	}
	return value.Double(f)
}

func (o *groupByOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if o.pos >= len(o.results) {
		return o.exhaust()
	}
	row := o.results[o.pos]
	o.pos++
	return o.emit(row)
}

func (o *groupByOp) Close() error {
	err := o.input.Close()
	o.markClosed()
	return err
}
