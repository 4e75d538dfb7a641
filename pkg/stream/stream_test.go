package stream

import (
	"context"
	"testing"
	"time"

	"github.com/corvusdb/corvus/pkg/model"
)

func mkTriple(s, p, o model.ID) model.Triple { return model.Triple{S: s, P: p, O: o} }

// TestS5SlidingWindowEviction covers spec.md §8 scenario S5: window
// width=10, slide=2; triples at t=0, t=3, t=12; at t=12 the first
// triple (t=0, now twelve seconds stale, before the cutoff 12-10=2) is
// evicted, leaving {t=3, t=12}.
func TestS5SlidingWindowEviction(t *testing.T) {
	w := NewWindow(10, 2)
	p := model.ID(1)
	s1, o1 := model.ID(10), model.ID(11)
	s2, o2 := model.ID(20), model.ID(21)
	s3, o3 := model.ID(30), model.ID(31)

	w.AddStream(mkTriple(s1, p, o1), 0)
	w.AddStream(mkTriple(s2, p, o2), 3)
	w.AddStream(mkTriple(s3, p, o3), 12)

	snap := w.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot = %v, want 2 triples after eviction", snap)
	}
	want := map[model.Triple]bool{
		mkTriple(s2, p, o2): true,
		mkTriple(s3, p, o3): true,
	}
	for _, tr := range snap {
		if !want[tr] {
			t.Fatalf("unexpected triple %v still in window after eviction", tr)
		}
	}
}

func TestMalformedTripleDroppedWithCounter(t *testing.T) {
	w := NewWindow(10, 2)
	w.AddStream(model.Triple{S: model.Unknown, P: 1, O: 2}, 0)
	if w.DroppedMalformed() != 1 {
		t.Fatalf("DroppedMalformed = %d, want 1", w.DroppedMalformed())
	}
	if len(w.Snapshot()) != 0 {
		t.Fatalf("malformed triple should not appear in snapshot")
	}
}

func passthroughEval(snapshot []model.Triple) []model.Triple { return snapshot }

func TestRSTREAMEmitsFullResultEachTick(t *testing.T) {
	w := NewWindow(10, 2)
	q := &ContinuousQuery{Window: w, Mode: RSTREAM, Eval: passthroughEval}

	w.AddStream(mkTriple(1, 2, 3), 0)
	first := q.Evaluate()
	if len(first) != 1 {
		t.Fatalf("first tick = %v, want 1 triple", first)
	}

	w.AddStream(mkTriple(4, 5, 6), 1)
	second := q.Evaluate()
	if len(second) != 2 {
		t.Fatalf("second tick = %v, want 2 triples (RSTREAM emits full set)", second)
	}
}

func TestISTREAMAndDSTREAMAreDisjoint(t *testing.T) {
	w := NewWindow(10, 2)
	iq := &ContinuousQuery{Window: w, Mode: ISTREAM, Eval: passthroughEval}
	dq := &ContinuousQuery{Window: w, Mode: DSTREAM, Eval: passthroughEval}

	w.AddStream(mkTriple(1, 2, 3), 0)
	ist := iq.Evaluate()
	dst := dq.Evaluate()

	// spec.md §8 invariant 6: IST(n) ∩ DST(n) = ∅.
	seen := make(map[model.Triple]bool, len(ist))
	for _, tr := range ist {
		seen[tr] = true
	}
	for _, tr := range dst {
		if seen[tr] {
			t.Fatalf("triple %v present in both ISTREAM and DSTREAM output at the same tick", tr)
		}
	}
	if len(ist) != 1 {
		t.Fatalf("first ISTREAM tick should emit the one new triple, got %v", ist)
	}
	if len(dst) != 0 {
		t.Fatalf("first DSTREAM tick should emit nothing yet, got %v", dst)
	}
}

// TestDSTREAMReportsEviction exercises DSTREAM's "result lost between
// ticks" case directly, since the above test only exercises the
// addition path.
func TestDSTREAMReportsEviction(t *testing.T) {
	w := NewWindow(5, 1)
	dq := &ContinuousQuery{Window: w, Mode: DSTREAM, Eval: passthroughEval}

	w.AddStream(mkTriple(1, 2, 3), 0)
	dq.Evaluate() // prev = {(1,2,3)}

	w.AddStream(mkTriple(4, 5, 6), 10) // advances now to 10, evicting (1,2,3)
	out := dq.Evaluate()
	if len(out) != 1 || out[0] != mkTriple(1, 2, 3) {
		t.Fatalf("DSTREAM after eviction = %v, want [(1,2,3)]", out)
	}
}

func TestContinuousQueryStartStop(t *testing.T) {
	w := NewWindow(10, 2)
	q := &ContinuousQuery{Window: w, Mode: RSTREAM, Eval: passthroughEval}
	w.AddStream(mkTriple(1, 2, 3), 0)

	ch := q.Start(context.Background(), time.Millisecond)
	select {
	case result := <-ch:
		if len(result) != 1 {
			t.Fatalf("tick result = %v, want 1 triple", result)
		}
	}
	q.Stop()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after Stop")
	}
}
