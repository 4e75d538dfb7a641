package exec

import (
	"context"

	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/store"
)

// scanOp is IndexScan's runtime counterpart, grounded on the teacher's
// scanIterator (which drove a store.Quad iterator and matched each quad
// against the pattern). store.QueryPattern already does the index
// dispatch (3/2/1/0-bound), so this operator only re-checks repeated
// variable consistency (e.g. "?x likes ?x") that the index lookup alone
// cannot enforce.
type scanOp struct {
	lifecycle
	store   *store.TripleStore
	pattern model.Pattern
	rows    []model.Triple
	pos     int
}

func newScanOp(s *store.TripleStore, pattern model.Pattern) *scanOp {
	return &scanOp{store: s, pattern: pattern}
}

func (o *scanOp) Open(ctx context.Context) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	o.rows = o.store.QueryPattern(o.pattern)
	o.pos = 0
	o.markReady()
	return nil
}

func (o *scanOp) Next(ctx context.Context) bool {
	if o.done() {
		return false
	}
	if err := checkCancelled(ctx); err != nil {
		return o.fail(err)
	}
	for o.pos < len(o.rows) {
		t := o.rows[o.pos]
		o.pos++
		if b, ok := model.Match(o.pattern, t, nil); ok {
			return o.emit(b)
		}
	}
	return o.exhaust()
}

func (o *scanOp) Close() error {
	o.markClosed()
	return nil
}
