package stats

import (
	"testing"

	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/store"
)

func TestStatisticsBasicCounts(t *testing.T) {
	s := store.New()
	s.Insert(model.Triple{S: 1, P: 10, O: 2})
	s.Insert(model.Triple{S: 3, P: 10, O: 2})
	s.Insert(model.Triple{S: 1, P: 11, O: 9})

	st := New(s)
	if st.TotalTriples() != 3 {
		t.Fatalf("expected 3 total triples, got %d", st.TotalTriples())
	}
	if st.PredicateFrequency(10) != 2 {
		t.Fatalf("expected predicate 10 frequency 2, got %d", st.PredicateFrequency(10))
	}
	if st.DistinctSubjectsForPredicate(10) != 2 {
		t.Fatalf("expected 2 distinct subjects for predicate 10, got %d", st.DistinctSubjectsForPredicate(10))
	}
	if st.DistinctObjectsForPredicate(10) != 1 {
		t.Fatalf("expected 1 distinct object for predicate 10, got %d", st.DistinctObjectsForPredicate(10))
	}
	if st.KnowsPredicate(999) {
		t.Fatalf("predicate 999 was never inserted")
	}
}

func TestStatisticsRebuildsOnWriteEpochChange(t *testing.T) {
	s := store.New()
	s.Insert(model.Triple{S: 1, P: 10, O: 2})

	st := New(s)
	if st.TotalTriples() != 1 {
		t.Fatalf("expected 1 total triple, got %d", st.TotalTriples())
	}

	s.Insert(model.Triple{S: 2, P: 10, O: 3})
	if st.TotalTriples() != 2 {
		t.Fatalf("expected stats to observe the new insert after write-epoch change, got %d", st.TotalTriples())
	}
}

func TestStatisticsCachesWithoutWrites(t *testing.T) {
	s := store.New()
	s.Insert(model.Triple{S: 1, P: 10, O: 2})
	st := New(s)

	first := st.TotalTriples()
	epochAfterFirst := st.builtAtEpoch
	second := st.TotalTriples()
	if first != second {
		t.Fatalf("repeated reads without writes should agree: %d vs %d", first, second)
	}
	if st.builtAtEpoch != epochAfterFirst {
		t.Fatalf("cache should not rebuild when write-epoch is unchanged")
	}
}
