package lsm

import (
	"testing"

	"github.com/corvusdb/corvus/pkg/model"
)

func TestReadYourWrites(t *testing.T) {
	b := New()
	tr := model.Triple{S: 1, P: 2, O: 3}
	b.Put(tr)
	if !b.Contains(tr) {
		t.Fatalf("expected read-your-writes: Contains should be true immediately after Put")
	}
}

func TestDeleteTombstoneHidesEntryBeforeMerge(t *testing.T) {
	b := NewWithLimits(4, 2)
	tr := model.Triple{S: 1, P: 2, O: 3}
	b.Put(tr)
	b.Delete(tr)
	if b.Contains(tr) {
		t.Fatalf("expected tombstoned triple to be hidden")
	}
	live, found := b.Get(tr)
	if !found || live {
		t.Fatalf("expected a found-but-dead tombstone record, got found=%v live=%v", found, live)
	}
}

func TestFlushOnThreshold(t *testing.T) {
	b := NewWithLimits(4, 100)
	for i := uint32(0); i < 4; i++ {
		b.Put(model.Triple{S: model.ID(i), P: 1, O: 1})
	}
	stats := b.Stats()
	if stats.MemtableSize != 0 {
		t.Fatalf("expected memtable to be flushed at threshold, got size %d", stats.MemtableSize)
	}
	if stats.RunCount != 1 {
		t.Fatalf("expected exactly one run after flush, got %d", stats.RunCount)
	}
}

func TestMergeOnRunLimitPreservesLiveEntries(t *testing.T) {
	b := NewWithLimits(2, 2)
	// Each Put pair triggers one flush; after 3 flushes (runLimit=2 is
	// exceeded on the 3rd), a merge folds runs into the sealed set.
	for batch := 0; batch < 3; batch++ {
		for i := 0; i < 2; i++ {
			b.Put(model.Triple{S: model.ID(batch*2 + i), P: 1, O: 1})
		}
	}
	stats := b.Stats()
	if stats.RunCount != 0 {
		t.Fatalf("expected runs to be merged into sealed set, got RunCount=%d", stats.RunCount)
	}
	if stats.SealedSize != 6 {
		t.Fatalf("expected 6 sealed entries, got %d", stats.SealedSize)
	}
	for batch := 0; batch < 3; batch++ {
		for i := 0; i < 2; i++ {
			tr := model.Triple{S: model.ID(batch*2 + i), P: 1, O: 1}
			if !b.Contains(tr) {
				t.Fatalf("expected %v to survive merge", tr)
			}
		}
	}
}

func TestMergeDiscardsTombstonedEntries(t *testing.T) {
	b := NewWithLimits(2, 1)
	tr := model.Triple{S: 1, P: 1, O: 1}
	b.Put(tr)
	b.Put(model.Triple{S: 2, P: 1, O: 1}) // flush #1 (threshold 2 reached)

	b.Delete(tr)
	b.Put(model.Triple{S: 3, P: 1, O: 1}) // flush #2, runLimit 1 exceeded -> merge

	if b.Contains(tr) {
		t.Fatalf("expected tombstoned triple to be physically gone after merge")
	}
	stats := b.Stats()
	if stats.RunCount != 0 {
		t.Fatalf("expected merge to clear runs, got %d", stats.RunCount)
	}
}

func TestNewestWinsAcrossLayers(t *testing.T) {
	b := NewWithLimits(1, 100)
	tr := model.Triple{S: 1, P: 1, O: 1}
	b.Put(tr)    // flush into run 0 as live
	b.Delete(tr) // flush into run 1 as tombstone

	if b.Contains(tr) {
		t.Fatalf("expected the later tombstone in run 1 to win over the live entry in run 0")
	}
}

func TestManyWritesStayConsistent(t *testing.T) {
	b := NewWithLimits(10, 3)
	want := make(map[model.Triple]bool)
	for i := 0; i < 200; i++ {
		tr := model.Triple{S: model.ID(i % 37), P: 1, O: model.ID(i)}
		if i%5 == 0 && want[tr] {
			b.Delete(tr)
			want[tr] = false
		} else {
			b.Put(tr)
			want[tr] = true
		}
	}
	for tr, shouldBeLive := range want {
		got := b.Contains(tr)
		if got != shouldBeLive {
			t.Fatalf("triple %v: got live=%v want=%v", tr, got, shouldBeLive)
		}
	}
}
