// Package lsm implements the in-memory LSM-inspired write buffer that
// backs the triple store's durability sketch: an ordered memtable,
// a bounded vector of immutable sorted runs, and a sealed long-term set,
// with tombstone-based deletion resolved newest-wins at merge time.
//
// Grounded on the teacher's storage.Storage/Transaction/Iterator
// interface triad (internal/storage/badger.go), reimplemented over
// plain Go slices and maps instead of BadgerDB: disk persistence beyond
// this in-memory sketch is out of scope, so the on-disk encoding logic
// the teacher built around Badger has no home here, but the write-path
// shape (buffer, flush, merge, tombstone) is kept.
package lsm

import (
	"sort"
	"sync"

	"github.com/corvusdb/corvus/pkg/model"
)

// DefaultMemtableThreshold is the entry count at which the memtable is
// flushed into a new immutable run.
const DefaultMemtableThreshold = 1000

// DefaultRunLimit is the number of immutable runs allowed to accumulate
// before they are merged into the sealed set.
const DefaultRunLimit = 5

// record is one memtable/run entry: a triple plus its tombstone bit.
type record struct {
	triple    model.Triple
	tombstone bool
}

// run is an immutable, triple-sorted, deduplicated batch of records
// produced by flushing the memtable.
type run []record

func (r run) find(t model.Triple) (record, bool) {
	i := sort.Search(len(r), func(i int) bool { return !r[i].triple.Less(t) })
	if i < len(r) && r[i].triple == t {
		return r[i], true
	}
	return record{}, false
}

// Buffer is the LSM write buffer: memtable + bounded runs + sealed set.
type Buffer struct {
	mu sync.Mutex

	memtableThreshold int
	runLimit          int

	memtable map[model.Triple]bool // triple -> tombstone bit; present = written since last flush
	runs     []run                 // oldest first, newest last
	sealed   run                   // triple-sorted, deduplicated, tombstones already removed
}

// New creates an empty write buffer with the default thresholds.
func New() *Buffer {
	return NewWithLimits(DefaultMemtableThreshold, DefaultRunLimit)
}

// NewWithLimits creates an empty write buffer with explicit thresholds,
// for tests that need to exercise flush/merge without 1000 writes.
func NewWithLimits(memtableThreshold, runLimit int) *Buffer {
	return &Buffer{
		memtableThreshold: memtableThreshold,
		runLimit:          runLimit,
		memtable:          make(map[model.Triple]bool),
	}
}

// Put records triple t as live. Read-your-writes: Get(t) reflects this
// write as soon as Put returns.
func (b *Buffer) Put(t model.Triple) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memtable[t] = false
	b.maybeFlushLocked()
}

// Delete records a tombstone for t. Physical removal happens later, at
// the next merge into the sealed set.
func (b *Buffer) Delete(t model.Triple) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memtable[t] = true
	b.maybeFlushLocked()
}

// Get reports whether t is currently live, searching the memtable, then
// runs newest-to-oldest, then the sealed set — the order that always
// finds the most recent write first, since each layer is strictly newer
// than the ones after it.
func (b *Buffer) Get(t model.Triple) (live bool, found bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tombstone, ok := b.memtable[t]; ok {
		return !tombstone, true
	}
	for i := len(b.runs) - 1; i >= 0; i-- {
		if rec, ok := b.runs[i].find(t); ok {
			return !rec.tombstone, true
		}
	}
	if rec, ok := b.sealed.find(t); ok {
		return !rec.tombstone, true
	}
	return false, false
}

// Contains is Get with tombstones and absence collapsed into one
// boolean: true only if t is found and live.
func (b *Buffer) Contains(t model.Triple) bool {
	live, found := b.Get(t)
	return found && live
}

// maybeFlushLocked flushes the memtable into a new run once it reaches
// the configured threshold, then merges runs into the sealed set once
// their count exceeds the run limit. Caller must hold b.mu.
func (b *Buffer) maybeFlushLocked() {
	if len(b.memtable) < b.memtableThreshold {
		return
	}
	b.flushLocked()
	if len(b.runs) > b.runLimit {
		b.mergeLocked()
	}
}

func (b *Buffer) flushLocked() {
	if len(b.memtable) == 0 {
		return
	}
	flushed := make(run, 0, len(b.memtable))
	for t, tombstone := range b.memtable {
		flushed = append(flushed, record{triple: t, tombstone: tombstone})
	}
	sort.Slice(flushed, func(i, j int) bool { return flushed[i].triple.Less(flushed[j].triple) })
	b.runs = append(b.runs, flushed)
	b.memtable = make(map[model.Triple]bool)
}

// Flush forces the current memtable into a new run regardless of
// whether it has reached the threshold, then merges if the run count
// now exceeds the limit. Exposed for tests and for an explicit
// checkpoint call.
func (b *Buffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
	if len(b.runs) > b.runLimit {
		b.mergeLocked()
	}
}

// mergeLocked merges the sealed set and all current runs (oldest to
// newest) into a new sorted sealed set, discarding entries shadowed by a
// later tombstone and dropping tombstones themselves (physical removal
// happens here, per the spec's "physical removal occurs at the next
// merge"). Caller must hold b.mu.
func (b *Buffer) mergeLocked() {
	layers := make([]run, 0, len(b.runs)+1)
	layers = append(layers, b.sealed)
	layers = append(layers, b.runs...)

	// Sequential overlay in oldest-to-newest layer order: each layer's
	// record for a triple replaces any earlier layer's record for the
	// same triple, which is exactly newest-wins tombstone resolution
	// since layers are already ordered oldest-first.
	merged := make(map[model.Triple]bool)
	for _, layer := range layers {
		for _, rec := range layer {
			merged[rec.triple] = rec.tombstone
		}
	}

	out := make(run, 0, len(merged))
	for t, tombstone := range merged {
		if tombstone {
			continue
		}
		out = append(out, record{triple: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].triple.Less(out[j].triple) })

	b.sealed = out
	b.runs = nil
}

// Stats reports the current shape of the buffer, for tests and for the
// streaming engine's diagnostics.
type Stats struct {
	MemtableSize int
	RunCount     int
	SealedSize   int
}

func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		MemtableSize: len(b.memtable),
		RunCount:     len(b.runs),
		SealedSize:   len(b.sealed),
	}
}
