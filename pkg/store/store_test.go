package store

import (
	"testing"

	"github.com/corvusdb/corvus/pkg/model"
)

func id(n uint32) model.ID { return model.ID(n) }

func idp(n uint32) *model.ID { v := model.ID(n); return &v }

func TestInsertIsIdempotentAndReportsNew(t *testing.T) {
	s := New()
	tr := model.Triple{S: 1, P: 2, O: 3}
	if !s.Insert(tr) {
		t.Fatalf("first insert should report new")
	}
	if s.Insert(tr) {
		t.Fatalf("second insert of the same triple should report not-new")
	}
	if s.Count() != 1 {
		t.Fatalf("expected count 1, got %d", s.Count())
	}
}

func TestDeleteRemovesFromAllIndexes(t *testing.T) {
	s := New()
	tr := model.Triple{S: 1, P: 2, O: 3}
	s.Insert(tr)
	if !s.Delete(tr) {
		t.Fatalf("expected delete to report removal")
	}
	if s.Contains(tr) {
		t.Fatalf("triple should no longer be contained")
	}
	if err := s.IndexConsistencyCheck(); err != nil {
		t.Fatalf("unexpected inconsistency after delete: %v", err)
	}
	if s.Delete(tr) {
		t.Fatalf("deleting an absent triple should report false")
	}
}

func s1Facts() []model.Triple {
	// peter worksAt kulak; kulak located kortrijk
	// charlotte worksAt ughent; ughent located ghent
	return []model.Triple{
		{S: 1, P: 10, O: 2}, // peter worksAt kulak
		{S: 2, P: 11, O: 3}, // kulak located kortrijk
		{S: 4, P: 10, O: 5}, // charlotte worksAt ughent
		{S: 5, P: 11, O: 6}, // ughent located ghent
	}
}

func TestQueryAllThreeBound(t *testing.T) {
	s := New()
	s.InsertAll(s1Facts())
	got := s.Query(idp(1), idp(10), idp(2))
	if len(got) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(got))
	}
	if s.Query(idp(1), idp(10), idp(99)) != nil {
		t.Fatalf("expected no match for wrong object")
	}
}

func TestQueryTwoBoundEachIndex(t *testing.T) {
	s := New()
	s.InsertAll(s1Facts())

	// subject+predicate bound -> SP index
	got := s.Query(idp(1), idp(10), nil)
	if len(got) != 1 || got[0].O != 2 {
		t.Fatalf("SP lookup: got %v", got)
	}

	// subject+object bound -> SO index
	got = s.Query(idp(1), nil, idp(2))
	if len(got) != 1 || got[0].P != 10 {
		t.Fatalf("SO lookup: got %v", got)
	}

	// predicate+object bound -> PO index
	got = s.Query(nil, idp(10), idp(2))
	if len(got) != 1 || got[0].S != 1 {
		t.Fatalf("PO lookup: got %v", got)
	}
}

func TestQueryOneBound(t *testing.T) {
	s := New()
	s.InsertAll(s1Facts())

	bySubject := s.Query(idp(1), nil, nil)
	if len(bySubject) != 1 {
		t.Fatalf("expected one triple for subject 1, got %d", len(bySubject))
	}

	byPredicate := s.Query(nil, idp(10), nil)
	if len(byPredicate) != 2 {
		t.Fatalf("expected two worksAt triples, got %d", len(byPredicate))
	}

	byObject := s.Query(nil, nil, idp(3))
	if len(byObject) != 1 || byObject[0].S != 2 {
		t.Fatalf("expected one triple with object 3, got %v", byObject)
	}
}

func TestQueryNoneBoundReturnsEverythingSorted(t *testing.T) {
	s := New()
	facts := s1Facts()
	s.InsertAll(facts)
	got := s.Query(nil, nil, nil)
	if len(got) != len(facts) {
		t.Fatalf("expected %d triples, got %d", len(facts), len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Less(got[i]) {
			t.Fatalf("expected sorted output, got %v then %v", got[i-1], got[i])
		}
	}
}

func TestIndexConsistencyAcrossRandomInsertsAndDeletes(t *testing.T) {
	s := New()
	var inserted []model.Triple
	n := 0
	for sVal := uint32(0); sVal < 5; sVal++ {
		for pVal := uint32(0); pVal < 3; pVal++ {
			for oVal := uint32(0); oVal < 4; oVal++ {
				tr := model.Triple{S: model.ID(sVal), P: model.ID(pVal), O: model.ID(oVal)}
				s.Insert(tr)
				inserted = append(inserted, tr)
				n++
			}
		}
	}
	if err := s.IndexConsistencyCheck(); err != nil {
		t.Fatalf("inconsistent after bulk insert: %v", err)
	}
	// Delete every third triple and recheck.
	for i, tr := range inserted {
		if i%3 == 0 {
			s.Delete(tr)
		}
	}
	if err := s.IndexConsistencyCheck(); err != nil {
		t.Fatalf("inconsistent after partial delete: %v", err)
	}
}

func TestQueryPatternWithVariables(t *testing.T) {
	s := New()
	s.InsertAll(s1Facts())
	p := model.Pattern{
		Subject:   model.Variable("p"),
		Predicate: model.Bound(10),
		Object:    model.Variable("l"),
	}
	got := s.QueryPattern(p)
	if len(got) != 2 {
		t.Fatalf("expected 2 worksAt triples, got %d", len(got))
	}
}

func TestWriteEpochAdvancesOnMutation(t *testing.T) {
	s := New()
	e0 := s.WriteEpoch()
	s.Insert(model.Triple{S: 1, P: 2, O: 3})
	e1 := s.WriteEpoch()
	if e1 <= e0 {
		t.Fatalf("expected write epoch to advance on insert")
	}
	s.Insert(model.Triple{S: 1, P: 2, O: 3}) // duplicate, no-op
	if s.WriteEpoch() != e1 {
		t.Fatalf("duplicate insert must not advance write epoch")
	}
}
