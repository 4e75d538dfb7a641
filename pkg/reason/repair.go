package reason

import (
	"sort"

	"github.com/corvusdb/corvus/pkg/model"
)

// materializeWithRepairs runs semi-naive materialization as usual, then
// checks the resulting fact set against r.Constraints. If the set is
// already consistent, no repairs are recorded (r.repairs is nil).
// Otherwise every maximal consistent subset ("repair") is computed, only
// the largest of them are kept, and future IARQuery calls answer from
// the intersection of the kept repairs.
func (r *Reasoner) materializeWithRepairs() (int, error) {
	added, err := r.materializeSemiNaive()
	if err != nil {
		return added, err
	}

	facts := r.Store.Query(nil, nil, nil)
	if !anyConflict(facts, r.Constraints) {
		r.repairs = nil
		return added, nil
	}

	// Spec.md §4.I: "Keep the largest repair (ties broken by
	// lexicographic order...). Subsequent queries use IAR semantics."
	// IARQuery intersects over r.repairs directly, so the largest-only
	// filter must happen here rather than at query time.
	r.repairs = largestRepairs(maximalRepairs(facts, r.Constraints))
	return added, nil
}

func anyConflict(facts []model.Triple, constraints []Constraint) bool {
	for i := range facts {
		for j := i + 1; j < len(facts); j++ {
			for _, c := range constraints {
				if c.Conflicts(facts[i], facts[j]) {
					return true
				}
			}
		}
	}
	return false
}

// maximalRepairs computes every maximal consistent subset of facts under
// constraints. Facts are nodes of a conflict graph; a consistent subset
// is an independent set of that graph, so a maximal consistent subset is
// a maximal independent set — equivalently a maximal clique of the
// complement graph. Enumerated with a Bron–Kerbosch style search over
// the complement adjacency, without pivoting. Every fact passed in is a
// node (materializeWithRepairs passes the whole store), including facts
// that take part in no conflict.
func maximalRepairs(facts []model.Triple, constraints []Constraint) [][]model.Triple {
	n := len(facts)
	conflict := make([][]bool, n)
	for i := range conflict {
		conflict[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for _, c := range constraints {
				if c.Conflicts(facts[i], facts[j]) {
					conflict[i][j] = true
					conflict[j][i] = true
					break
				}
			}
		}
	}
	// complement adjacency: i and j are adjacent (can coexist in a
	// repair clique) iff they do not conflict.
	adj := func(i, j int) bool { return i != j && !conflict[i][j] }

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	var cliques [][]int
	var bronKerbosch func(r, p, x []int)
	bronKerbosch = func(r, p, x []int) {
		if len(p) == 0 && len(x) == 0 {
			clique := make([]int, len(r))
			copy(clique, r)
			cliques = append(cliques, clique)
			return
		}
		pCopy := append([]int(nil), p...)
		for _, v := range pCopy {
			nv := neighbors(v, all, adj)
			bronKerbosch(append(r, v), intersect(p, nv), intersect(x, nv))
			p = remove(p, v)
			x = append(x, v)
		}
	}
	bronKerbosch(nil, all, nil)

	repairs := make([][]model.Triple, 0, len(cliques))
	for _, clique := range cliques {
		repair := make([]model.Triple, len(clique))
		for i, idx := range clique {
			repair[i] = facts[idx]
		}
		repairs = append(repairs, repair)
	}
	return dedupeMaximal(repairs)
}

func neighbors(v int, universe []int, adj func(a, b int) bool) []int {
	var out []int
	for _, u := range universe {
		if adj(v, u) {
			out = append(out, u)
		}
	}
	return out
}

func intersect(a, b []int) []int {
	set := make(map[int]bool, len(b))
	for _, x := range b {
		set[x] = true
	}
	var out []int
	for _, x := range a {
		if set[x] {
			out = append(out, x)
		}
	}
	return out
}

func remove(a []int, v int) []int {
	out := make([]int, 0, len(a))
	for _, x := range a {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// dedupeMaximal drops any repair that is a strict subset of another
// (the literal Bron–Kerbosch output is already maximal-clique-unique,
// but kept defensive since repairs feed IAR semantics directly).
func dedupeMaximal(repairs [][]model.Triple) [][]model.Triple {
	var out [][]model.Triple
	for i, a := range repairs {
		subsumed := false
		for j, b := range repairs {
			if i != j && len(b) > len(a) && isSubset(a, b) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, a)
		}
	}
	return out
}

func isSubset(a, b []model.Triple) bool {
	set := make(map[model.Triple]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	for _, t := range a {
		if !set[t] {
			return false
		}
	}
	return true
}

// largestRepairs returns the subset of repairs with the maximum size.
func largestRepairs(repairs [][]model.Triple) [][]model.Triple {
	max := 0
	for _, r := range repairs {
		if len(r) > max {
			max = len(r)
		}
	}
	var out [][]model.Triple
	for _, r := range repairs {
		if len(r) == max {
			out = append(out, r)
		}
	}
	return out
}

// sortTriple is the lexicographic (S,P,O) id order used both to order a
// single repair's triples and to break ties between same-size repairs.
func sortTriple(ts []model.Triple) []model.Triple {
	out := append([]model.Triple(nil), ts...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.S != b.S {
			return a.S < b.S
		}
		if a.P != b.P {
			return a.P < b.P
		}
		return a.O < b.O
	})
	return out
}

// lexLess compares two sorted triple sequences lexicographically,
// triple by triple, then by length.
func lexLess(a, b []model.Triple) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i].S != b[i].S {
				return a[i].S < b[i].S
			}
			if a[i].P != b[i].P {
				return a[i].P < b[i].P
			}
			return a[i].O < b[i].O
		}
	}
	return len(a) < len(b)
}

// bestRepair picks the single repair IARQuery would fall back to if it
// needed one canonical repair rather than an intersection: the
// lexicographically-least maximal repair among those of largest size.
// This is the resolved tie-break for the Open Question on
// non-deterministic max_by_key(len) repair selection (see DESIGN.md).
func bestRepair(repairs [][]model.Triple) []model.Triple {
	largest := largestRepairs(repairs)
	if len(largest) == 0 {
		return nil
	}
	best := sortTriple(largest[0])
	for _, r := range largest[1:] {
		sorted := sortTriple(r)
		if lexLess(sorted, best) {
			best = sorted
		}
	}
	return best
}

// IARQuery answers pattern under Intersection-of-All-Repairs semantics:
// a fact is returned only if every maximal consistent repair contains
// it. If no repair computation has ever run (the store was never found
// inconsistent), this is equivalent to a plain store query.
func (r *Reasoner) IARQuery(pattern model.Pattern) []model.Triple {
	if r.repairs == nil {
		return r.Store.QueryPattern(pattern)
	}
	candidates := r.Store.QueryPattern(pattern)
	var out []model.Triple
	for _, t := range candidates {
		if r.inEveryRepair(t) {
			out = append(out, t)
		}
	}
	return out
}

func (r *Reasoner) inEveryRepair(t model.Triple) bool {
	for _, repair := range r.repairs {
		found := false
		for _, rt := range repair {
			if rt == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
