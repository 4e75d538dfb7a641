// Package store implements the canonical triple set and its six
// two-column secondary indexes (SP, PS, SO, OS, PO, OP), with query
// dispatch by bound-position count: direct containment test when all
// three positions are bound, single-index lookup when two are bound,
// index iteration when one is bound, and full-set iteration when none
// are bound.
//
// Grounded on the teacher's selectIndex/buildScanPrefix dispatch in
// pkg/store/query.go and the insert-into-every-index fan-out in
// internal/store/store.go's insertQuadInTxn, reduced from the teacher's
// nine-index quad scheme (three default-graph plus six named-graph
// indexes) down to six triple indexes since this data model carries no
// graph dimension.
package store

import (
	"sort"
	"sync"

	"github.com/corvusdb/corvus/pkg/corvuserr"
	"github.com/corvusdb/corvus/pkg/model"
)

// TripleStore is the canonical triple set plus its six secondary
// indexes. It is safe for concurrent use under a single-writer/
// multi-reader discipline: Insert and Delete must not be called
// concurrently with each other or with themselves, but Query, Contains,
// and Count may run concurrently with any number of other readers.
type TripleStore struct {
	mu sync.RWMutex

	triples map[model.Triple]struct{}

	sp, ps *pairIndex // (S,P)->O, (P,S)->O
	so, os *pairIndex // (S,O)->P, (O,S)->P
	po, op *pairIndex // (P,O)->S, (O,P)->S

	writeEpoch uint64
}

// New creates an empty triple store.
func New() *TripleStore {
	return &TripleStore{
		triples: make(map[model.Triple]struct{}),
		sp:      newPairIndex(),
		ps:      newPairIndex(),
		so:      newPairIndex(),
		os:      newPairIndex(),
		po:      newPairIndex(),
		op:      newPairIndex(),
	}
}

// Insert adds t to the store, fanning the write out to all six indexes.
// It reports true if t was not already present.
func (s *TripleStore) Insert(t model.Triple) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(t)
}

func (s *TripleStore) insertLocked(t model.Triple) bool {
	if _, exists := s.triples[t]; exists {
		return false
	}
	s.triples[t] = struct{}{}
	s.sp.insert(t.S, t.P, t.O)
	s.ps.insert(t.P, t.S, t.O)
	s.so.insert(t.S, t.O, t.P)
	s.os.insert(t.O, t.S, t.P)
	s.po.insert(t.P, t.O, t.S)
	s.op.insert(t.O, t.P, t.S)
	s.writeEpoch++
	return true
}

// InsertAll inserts every triple in ts, returning the number newly added.
func (s *TripleStore) InsertAll(ts []model.Triple) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range ts {
		if s.insertLocked(t) {
			n++
		}
	}
	return n
}

// Delete removes t from the store and all six indexes. It reports true
// if t was present.
func (s *TripleStore) Delete(t model.Triple) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.triples[t]; !exists {
		return false
	}
	delete(s.triples, t)
	s.sp.delete(t.S, t.P, t.O)
	s.ps.delete(t.P, t.S, t.O)
	s.so.delete(t.S, t.O, t.P)
	s.os.delete(t.O, t.S, t.P)
	s.po.delete(t.P, t.O, t.S)
	s.op.delete(t.O, t.P, t.S)
	s.writeEpoch++
	return true
}

// Contains reports whether t is present in the store.
func (s *TripleStore) Contains(t model.Triple) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.triples[t]
	return ok
}

// Count returns the total number of triples in the store.
func (s *TripleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.triples)
}

// WriteEpoch returns the current write-epoch counter, incremented on
// every successful Insert or Delete. pkg/stats uses this to know when a
// cached statistics rebuild is stale.
func (s *TripleStore) WriteEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeEpoch
}

// DistinctSubjectsForPredicate returns the number of distinct subjects
// seen with predicate p, via the PS index (keyed (P,S)).
func (s *TripleStore) DistinctSubjectsForPredicate(p model.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ps.distinctFirstCount2(p)
}

// DistinctObjectsForPredicate returns the number of distinct objects
// seen with predicate p, via the PO index (keyed (P,O)).
func (s *TripleStore) DistinctObjectsForPredicate(p model.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.po.distinctFirstCount2(p)
}

// distinctFirstCount2 is distinctFirstCount restricted to a given first
// value's own second-column fan-out (i.e. how many distinct seconds a
// given first has), as opposed to distinctFirstCount's global count of
// distinct firsts. Kept as a small helper on pairIndex to avoid exposing
// byFirst directly.
func (idx *pairIndex) distinctFirstCount2(a model.ID) int {
	return len(idx.byFirst[a])
}

// BoundCount reports how many of s, p, o are non-nil (bound).
func BoundCount(s, p, o *model.ID) int {
	n := 0
	for _, x := range []*model.ID{s, p, o} {
		if x != nil {
			n++
		}
	}
	return n
}

// Query returns every triple matching the given bound positions, nil
// meaning "unbound" in that position. Dispatch follows the store's
// bound-position-count rule: 3 bound is a containment test, 2 bound is
// a single secondary-index lookup, 1 bound iterates that index keyed on
// the bound position, 0 bound iterates the canonical set.
func (s *TripleStore) Query(subject, predicate, object *model.ID) []model.Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch BoundCount(subject, predicate, object) {
	case 3:
		t := model.Triple{S: *subject, P: *predicate, O: *object}
		if _, ok := s.triples[t]; ok {
			return []model.Triple{t}
		}
		return nil

	case 2:
		switch {
		case subject != nil && predicate != nil:
			return tripleList(*subject, *predicate, s.sp.lookup(*subject, *predicate), objPos)
		case subject != nil && object != nil:
			return tripleList(*subject, *object, s.so.lookup(*subject, *object), predPos)
		case predicate != nil && object != nil:
			return tripleList(*predicate, *object, s.po.lookup(*predicate, *object), subjPos)
		}
		return nil

	case 1:
		switch {
		case subject != nil:
			pairs := s.sp.scanFirst(*subject)
			out := make([]model.Triple, 0, len(pairs))
			for _, pr := range pairs {
				out = append(out, model.Triple{S: *subject, P: pr[0], O: pr[1]})
			}
			return out
		case predicate != nil:
			pairs := s.ps.scanFirst(*predicate)
			out := make([]model.Triple, 0, len(pairs))
			for _, pr := range pairs {
				out = append(out, model.Triple{S: pr[0], P: *predicate, O: pr[1]})
			}
			return out
		case object != nil:
			pairs := s.os.scanFirst(*object)
			out := make([]model.Triple, 0, len(pairs))
			for _, pr := range pairs {
				out = append(out, model.Triple{S: pr[0], P: pr[1], O: *object})
			}
			return out
		}
		return nil

	default:
		out := make([]model.Triple, 0, len(s.triples))
		for t := range s.triples {
			out = append(out, t)
		}
		model.SortTriples(out)
		return out
	}
}

// position tags used only to document tripleList's third argument intent.
type position int

const (
	subjPos position = iota
	predPos
	objPos
)

// tripleList reconstructs full triples from a two-bound-position lookup.
// a and b are the two bound values in the order the caller's index was
// keyed; vals holds the free position's resolved values; which says
// which position vals fills.
func tripleList(a, b model.ID, vals []model.ID, which position) []model.Triple {
	out := make([]model.Triple, 0, len(vals))
	for _, v := range vals {
		switch which {
		case objPos: // a=S, b=P, v=O
			out = append(out, model.Triple{S: a, P: b, O: v})
		case predPos: // a=S, b=O, v=P
			out = append(out, model.Triple{S: a, P: v, O: b})
		case subjPos: // a=P, b=O, v=S
			out = append(out, model.Triple{S: v, P: a, O: b})
		}
	}
	return out
}

// QueryPattern is a convenience wrapper over Query for callers holding a
// model.Pattern rather than three *model.ID pointers. Variables in p are
// treated as unbound positions.
func (s *TripleStore) QueryPattern(p model.Pattern) []model.Triple {
	var sp, pp, op *model.ID
	if !p.Subject.IsVariable() {
		id := p.Subject.ID
		sp = &id
	}
	if !p.Predicate.IsVariable() {
		id := p.Predicate.ID
		pp = &id
	}
	if !p.Object.IsVariable() {
		id := p.Object.ID
		op = &id
	}
	return s.Query(sp, pp, op)
}

// IndexConsistencyCheck scans the canonical set and verifies every
// triple is reachable through all six secondary indexes, returning the
// first inconsistency found (nil if none). Used by store_test.go to
// exercise the index-consistency invariant directly.
func (s *TripleStore) IndexConsistencyCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for t := range s.triples {
		checks := []struct {
			name string
			got  []model.ID
			want model.ID
		}{
			{"SP", s.sp.lookup(t.S, t.P), t.O},
			{"PS", s.ps.lookup(t.P, t.S), t.O},
			{"SO", s.so.lookup(t.S, t.O), t.P},
			{"OS", s.os.lookup(t.O, t.S), t.P},
			{"PO", s.po.lookup(t.P, t.O), t.S},
			{"OP", s.op.lookup(t.O, t.P), t.S},
		}
		for _, c := range checks {
			if !containsID(c.got, c.want) {
				return corvuserr.New(corvuserr.Internal, &indexInconsistencyError{index: c.name, triple: t})
			}
		}
	}
	return nil
}

func containsID(vals []model.ID, want model.ID) bool {
	i := sort.Search(len(vals), func(i int) bool { return vals[i] >= want })
	return i < len(vals) && vals[i] == want
}

type indexInconsistencyError struct {
	index  string
	triple model.Triple
}

func (e *indexInconsistencyError) Error() string {
	return "store: index " + e.index + " inconsistent for triple " + e.triple.String()
}
