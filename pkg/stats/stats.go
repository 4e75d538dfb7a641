// Package stats implements the Statistics component: per-predicate
// frequency and distinct subject/object counts, rebuilt by a full scan
// and cached behind the triple store's write-epoch counter.
//
// The teacher's optimizer carried only a bare TotalTriples int64
// placeholder (internal/sparql/optimizer/optimizer.go's Statistics
// struct); this package generalizes that single field into the full
// per-predicate shape the cost estimator needs.
package stats

import "github.com/corvusdb/corvus/pkg/model"

// source is the minimal view of the triple store Statistics needs to
// rebuild itself: a full scan plus distinct-count helpers already
// maintained by the secondary indexes.
type source interface {
	Query(subject, predicate, object *model.ID) []model.Triple
	Count() int
	WriteEpoch() uint64
	DistinctSubjectsForPredicate(p model.ID) int
	DistinctObjectsForPredicate(p model.ID) int
}

// predicateStats holds the derived counts for one predicate.
type predicateStats struct {
	frequency        int
	distinctSubjects int
	distinctObjects  int
}

// Statistics is a lazily-rebuilt cache of per-predicate cardinality
// estimates, invalidated whenever the backing store's write-epoch
// advances.
type Statistics struct {
	store source

	builtAtEpoch uint64
	built        bool
	total        int
	perPredicate map[model.ID]predicateStats
}

// New creates a Statistics cache over store. It is not built until the
// first query.
func New(store source) *Statistics {
	return &Statistics{store: store}
}

// refresh rebuilds the cache by a full scan if the store's write-epoch
// has advanced since the last build, or if never built.
func (s *Statistics) refresh() {
	epoch := s.store.WriteEpoch()
	if s.built && epoch == s.builtAtEpoch {
		return
	}

	triples := s.store.Query(nil, nil, nil)
	perPred := make(map[model.ID]predicateStats)
	seenPred := make(map[model.ID]bool)
	for _, t := range triples {
		seenPred[t.P] = true
	}
	for p := range seenPred {
		freq := 0
		for _, t := range triples {
			if t.P == p {
				freq++
			}
		}
		perPred[p] = predicateStats{
			frequency:        freq,
			distinctSubjects: s.store.DistinctSubjectsForPredicate(p),
			distinctObjects:  s.store.DistinctObjectsForPredicate(p),
		}
	}

	s.total = len(triples)
	s.perPredicate = perPred
	s.builtAtEpoch = epoch
	s.built = true
}

// TotalTriples returns the total number of triples in the store.
func (s *Statistics) TotalTriples() int {
	s.refresh()
	return s.total
}

// PredicateFrequency returns how many triples use predicate p.
func (s *Statistics) PredicateFrequency(p model.ID) int {
	s.refresh()
	return s.perPredicate[p].frequency
}

// DistinctSubjectsForPredicate returns the number of distinct subjects
// seen with predicate p.
func (s *Statistics) DistinctSubjectsForPredicate(p model.ID) int {
	s.refresh()
	return s.perPredicate[p].distinctSubjects
}

// DistinctObjectsForPredicate returns the number of distinct objects
// seen with predicate p.
func (s *Statistics) DistinctObjectsForPredicate(p model.ID) int {
	s.refresh()
	return s.perPredicate[p].distinctObjects
}

// KnowsPredicate reports whether p has ever been seen, distinguishing
// "predicate absent, heuristic fallback needed" from "predicate present
// with zero of something" for the cost estimator.
func (s *Statistics) KnowsPredicate(p model.ID) bool {
	s.refresh()
	_, ok := s.perPredicate[p]
	return ok
}
