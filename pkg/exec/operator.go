// Package exec is the Volcano-style execution engine: one operator per
// plan.Physical node, each pulled row by row by its parent.
//
// Grounded on the teacher's executor.go (pkg/sparql/executor/executor.go):
// the BindingIterator triad (Next() bool / Binding() *store.Binding /
// Close() error) and its concrete iterators (scanIterator,
// nestedLoopJoinIterator, filterIterator, projectionIterator,
// limitIterator, offsetIterator, distinctIterator, bindIterator). This
// package keeps that exact three-method shape but adds the explicit
// Open(ctx)/Err() split and a named state machine, since the teacher's
// iterators conflated "open" into first-Next and had no way to report a
// mid-iteration error separately from "no more rows" (Binding() carried
// a TODO about exactly this).
package exec

import (
	"context"
	"errors"
	"fmt"

	"github.com/corvusdb/corvus/pkg/corvuserr"
	"github.com/corvusdb/corvus/pkg/model"
)

// State names the Volcano operator lifecycle.
type State int

const (
	Unopened State = iota
	Ready
	Emitting
	Exhausted
	Closed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Ready:
		return "ready"
	case Emitting:
		return "emitting"
	case Exhausted:
		return "exhausted"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Operator is one physical plan node's runtime counterpart: Open before
// the first Next, Next pulls one row at a time (false means exhausted or
// an error occurred — check Err), Close releases resources and may be
// called more than once.
type Operator interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) bool
	Binding() model.Binding
	Err() error
	Close() error
}

// lifecycle is embedded by every concrete operator to track and enforce
// the Unopened -> Ready -> (Emitting)* -> Exhausted -> Closed state
// machine.
type lifecycle struct {
	state State
	err   error
	row   model.Binding
}

func (l *lifecycle) requireOpen() error {
	if l.state == Unopened {
		return fmt.Errorf("exec: operator used before Open")
	}
	if l.state == Closed {
		return fmt.Errorf("exec: operator used after Close")
	}
	return nil
}

func (l *lifecycle) markReady() { l.state = Ready }

func (l *lifecycle) emit(b model.Binding) bool {
	l.row = b
	l.state = Emitting
	return true
}

func (l *lifecycle) exhaust() bool {
	l.row = nil
	l.state = Exhausted
	return false
}

func (l *lifecycle) fail(err error) bool {
	l.err = err
	l.row = nil
	l.state = Exhausted
	return false
}

func (l *lifecycle) done() bool {
	return l.state == Exhausted || l.state == Closed
}

func (l *lifecycle) Binding() model.Binding { return l.row }
func (l *lifecycle) Err() error             { return l.err }

func (l *lifecycle) markClosed() { l.state = Closed }

// mergeBindings unifies two bindings, failing if they disagree on a
// shared variable's id. Non-mutating.
func mergeBindings(a, b model.Binding) (model.Binding, bool) {
	out := a.Clone()
	for k, v := range b {
		if existing, ok := out[k]; ok {
			if existing != v {
				return nil, false
			}
			continue
		}
		out[k] = v
	}
	return out, true
}

// checkCancelled reports ctx's cancellation as a classified corvuserr,
// per spec.md §7 ("Query execution exposes a soft deadline; exceeded
// queries terminate with a Timeout error").
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return corvuserr.New(corvuserr.Timeout, err)
		}
		return corvuserr.New(corvuserr.Cancelled, err)
	default:
		return nil
	}
}
