package exec

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/corvusdb/corvus/pkg/model"
	"github.com/zeebo/xxh3"
)

// projectionOp is PhysicalProjection's runtime counterpart, grounded on
// the teacher's projectionIterator and distinctIterator (which it keeps
// separate; this merges DISTINCT into projection itself since both key
// off the same restricted row). Signature hashing uses xxh3 rather than
// the teacher's bindingSignature/termSignature string building, avoiding
// an allocation-heavy sorted-strings-join per row.
type projectionOp struct {
	lifecycle
	input    Operator
	vars     []string
	distinct bool
	seen     map[uint64]bool
}

func newProjectionOp(input Operator, vars []string, distinct bool) *projectionOp {
	var seen map[uint64]bool
	if distinct {
		seen = make(map[uint64]bool)
	}
	return &projectionOp{input: input, vars: vars, distinct: distinct, seen: seen}
}

func (o *projectionOp) Open(ctx context.Context) error {
	if err := o.input.Open(ctx); err != nil {
		return err
	}
	o.markReady()
	return nil
}

func (o *projectionOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	for o.input.Next(ctx) {
		row := o.input.Binding()
		out := make(model.Binding, len(o.vars))
		for _, v := range o.vars {
			if id, ok := row[v]; ok {
				out[v] = id
			}
		}
		if o.distinct {
			key := signature(out)
			if o.seen[key] {
				continue
			}
			o.seen[key] = true
		}
		return o.emit(out)
	}
	if err := o.input.Err(); err != nil {
		return o.fail(err)
	}
	return o.exhaust()
}

func (o *projectionOp) Close() error {
	err := o.input.Close()
	o.markClosed()
	return err
}

// signature computes a variable-order-independent hash of a binding, for
// DISTINCT/GROUP-BY-style de-duplication.
func signature(b model.Binding) uint64 {
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, k := range names {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatUint(uint64(b[k]), 10))
		sb.WriteByte(';')
	}
	return xxh3.HashString(sb.String())
}
