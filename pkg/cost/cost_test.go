package cost

import (
	"testing"

	"github.com/corvusdb/corvus/pkg/model"
)

type fakeStats struct {
	total   int
	subj    map[model.ID]int
	obj     map[model.ID]int
	knownPs map[model.ID]bool
}

func (f *fakeStats) TotalTriples() int { return f.total }
func (f *fakeStats) DistinctSubjectsForPredicate(p model.ID) int { return f.subj[p] }
func (f *fakeStats) DistinctObjectsForPredicate(p model.ID) int  { return f.obj[p] }
func (f *fakeStats) KnowsPredicate(p model.ID) bool              { return f.knownPs[p] }

func TestPositionSelectivityUnbound(t *testing.T) {
	e := New(&fakeStats{total: 100})
	if got := e.PositionSelectivity(false, 0); got != 1.0 {
		t.Fatalf("unbound position selectivity should be 1.0, got %v", got)
	}
}

func TestPositionSelectivityBoundWithDistinctCount(t *testing.T) {
	e := New(&fakeStats{total: 100})
	if got := e.PositionSelectivity(true, 4); got != 0.25 {
		t.Fatalf("expected 1/4 = 0.25, got %v", got)
	}
}

func TestPositionSelectivityBoundFallsBackToHeuristic(t *testing.T) {
	e := New(&fakeStats{total: 50})
	if got := e.PositionSelectivity(true, 0); got != 1.0/50.0 {
		t.Fatalf("expected heuristic 1/N fallback, got %v", got)
	}
}

func TestPatternCardinalityAllUnbound(t *testing.T) {
	f := &fakeStats{total: 1000}
	e := New(f)
	p := model.Pattern{Subject: model.Variable("s"), Predicate: model.Variable("p"), Object: model.Variable("o")}
	if got := e.PatternCardinality(p); got != 1000 {
		t.Fatalf("fully unbound pattern should estimate the total, got %v", got)
	}
}

func TestPatternCardinalityWithKnownPredicate(t *testing.T) {
	f := &fakeStats{
		total:   1000,
		subj:    map[model.ID]int{10: 5},
		obj:     map[model.ID]int{10: 20},
		knownPs: map[model.ID]bool{10: true},
	}
	e := New(f)
	p := model.Pattern{Subject: model.Bound(1), Predicate: model.Bound(10), Object: model.Variable("o")}
	got := e.PatternCardinality(p)
	if got <= 0 || got >= 1000 {
		t.Fatalf("expected a reduced cardinality estimate, got %v", got)
	}
}

func TestHashJoinCostFormula(t *testing.T) {
	e := New(&fakeStats{total: 10})
	got := e.HashJoin(10, 20)
	want := HashJoinBuildPerItem*10 + HashJoinProbePerItem*20
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNestedLoopCostFormula(t *testing.T) {
	e := New(&fakeStats{})
	got := e.NestedLoop(3, 4)
	if got != 3*4*NestedLoopPerPair {
		t.Fatalf("got %v", got)
	}
}

func TestPreferSmallerRightBuild(t *testing.T) {
	if !PreferSmallerRightBuild(5, 10) {
		t.Fatalf("expected to prefer the smaller right build side")
	}
	if PreferSmallerRightBuild(10, 5) {
		t.Fatalf("expected not to prefer the larger right build side")
	}
}
