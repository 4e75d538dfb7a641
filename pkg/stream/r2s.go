package stream

import (
	"sort"

	"github.com/corvusdb/corvus/pkg/model"
)

// R2SMode selects a relation-to-stream conversion operator.
type R2SMode int

const (
	RSTREAM R2SMode = iota
	ISTREAM
	DSTREAM
)

// resultSet is an unordered set of triples, keyed for set difference.
type resultSet map[model.Triple]bool

func toSet(ts []model.Triple) resultSet {
	s := make(resultSet, len(ts))
	for _, t := range ts {
		s[t] = true
	}
	return s
}

// diff returns a \ b as a slice, stable-ordered by (S,P,O).
func diff(a, b resultSet) []model.Triple {
	var out []model.Triple
	for t := range a {
		if !b[t] {
			out = append(out, t)
		}
	}
	sortTriples(out)
	return out
}

func sortTriples(ts []model.Triple) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Less(ts[j]) })
}

// r2sConvert applies mode to the transition from prev to curr, per
// spec.md §4.J: RSTREAM emits curr wholesale; ISTREAM emits curr\prev;
// DSTREAM emits prev\curr.
func r2sConvert(mode R2SMode, prev, curr []model.Triple) []model.Triple {
	switch mode {
	case RSTREAM:
		out := make([]model.Triple, len(curr))
		copy(out, curr)
		sortTriples(out)
		return out
	case ISTREAM:
		return diff(toSet(curr), toSet(prev))
	case DSTREAM:
		return diff(toSet(prev), toSet(curr))
	default:
		return nil
	}
}
