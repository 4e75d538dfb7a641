package reason

import "github.com/corvusdb/corvus/pkg/model"

// Constraint is an integrity constraint checked pairwise across the
// current fact set during SemiNaiveWithRepairs materialization. Kept
// pairwise (rather than a whole-set predicate) because repair
// computation needs to build a conflict graph over facts, and pairwise
// conflicts are exactly the graph's edges.
type Constraint interface {
	Conflicts(a, b model.Triple) bool
}

// DisjointObjects asserts that no subject may simultaneously hold two
// disjoint object values under the same predicate — the shape spec.md
// §8's S6 scenario names ("socrates is_a mortal" vs "socrates is_a
// immortal").
type DisjointObjects struct {
	Predicate model.ID
	A, B      model.ID
}

func (c DisjointObjects) Conflicts(a, b model.Triple) bool {
	if a.P != c.Predicate || b.P != c.Predicate || a.S != b.S {
		return false
	}
	return (a.O == c.A && b.O == c.B) || (a.O == c.B && b.O == c.A)
}
