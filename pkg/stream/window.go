// Package stream implements the continuous-query streaming engine:
// sliding windows over timestamped triples, a cooperative tick loop,
// and RSTREAM/ISTREAM/DSTREAM relation-to-stream operators, per
// spec.md §4.J.
//
// Grounded on no direct teacher analog (trigo has no streaming layer);
// built from spec §4.J and §5 directly, using the goroutine+channel+
// time.Ticker cooperative-loop idiom visible across the pack (torua's
// state-machine-guarded mutable fields, erigon's background-task-for-
// merges pattern) rather than a scheduling framework.
package stream

import (
	"sort"
	"sync"

	"github.com/corvusdb/corvus/pkg/model"
)

// Window is a sliding time window over timestamped triples: width and
// slide are both expressed in the same abstract time unit spec.md's
// scenario S5 uses (seconds in the worked example, but nothing here
// assumes wall-clock time — add_stream's timestamp is caller-supplied).
type Window struct {
	mu     sync.RWMutex
	width  int64
	slide  int64
	facts  []model.TimestampedTriple
	now    int64
	// droppedMalformed counts triples add_stream rejected for spec.md
	// §7's "malformed triples are dropped with a counter" requirement.
	droppedMalformed int
}

// NewWindow creates a window with the given width/slide, matching
// set_window(width, slide).
func NewWindow(width, slide int64) *Window {
	return &Window{width: width, slide: slide}
}

// SetWindow reconfigures width/slide in place (set_window may be called
// again against a live window per spec.md's naming it a standalone
// contract rather than a constructor-only option).
func (w *Window) SetWindow(width, slide int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width = width
	w.slide = slide
}

// Slide returns the configured slide interval, used by the tick loop to
// pick its ticker period.
func (w *Window) Slide() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.slide
}

// isMalformed rejects triples with an unknown (zero) term id in any
// position — add_stream's sole validity check, since the dictionary
// encoding step that produces a well-formed TimestampedTriple cannot
// itself fail once given a valid lexical form.
func isMalformed(t model.Triple) bool {
	return t.S == model.Unknown || t.P == model.Unknown || t.O == model.Unknown
}

// AddStream appends triple at timestamp ts, advancing the window's
// notion of "now" to ts when ts is later than it, then evicting anything
// older than now-width.
// Malformed triples are dropped and counted rather than returned as an
// error, matching spec.md §7's streaming error-handling rule.
func (w *Window) AddStream(t model.Triple, ts int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if isMalformed(t) {
		w.droppedMalformed++
		return
	}
	if ts > w.now {
		w.now = ts
	}
	w.facts = append(w.facts, model.TimestampedTriple{Triple: t, Timestamp: ts})
	w.evictLocked()
}

// evictLocked drops facts older than now-width: spec.md §3 keeps
// triples with timestamp >= now-width, so the cutoff itself is still
// in-window. Caller must hold w.mu.
func (w *Window) evictLocked() {
	cutoff := w.now - w.width
	kept := w.facts[:0]
	for _, f := range w.facts {
		if f.Timestamp >= cutoff {
			kept = append(kept, f)
		}
	}
	w.facts = kept
}

// Snapshot returns the triples currently inside the window, ordered by
// timestamp then (S,P,O) for deterministic iteration.
func (w *Window) Snapshot() []model.Triple {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.TimestampedTriple, len(w.facts))
	copy(out, w.facts)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Triple.Less(out[j].Triple)
	})
	triples := make([]model.Triple, len(out))
	for i, f := range out {
		triples[i] = f.Triple
	}
	return triples
}

// DroppedMalformed reports the running count of rejected triples.
func (w *Window) DroppedMalformed() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.droppedMalformed
}

// Now reports the window's current logical time (the latest timestamp
// passed to AddStream so far).
func (w *Window) Now() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.now
}
