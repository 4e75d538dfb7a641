// Package reason implements forward-chaining rule materialization over
// a triple store: naive, semi-naive, and semi-naive-with-repairs
// strategies, per spec.md §4.I.
//
// Grounded on no direct teacher analog (trigo has no rule engine) —
// built from spec §4.I's prose directly, in the teacher's general
// idiom: small structs, explicit error returns, the same
// backtracking-join shape pkg/exec's nested-loop join uses, and
// pkg/exec's own Evaluator reused here for rule FILTER clauses rather
// than re-implementing expression evaluation a second time.
package reason

import (
	"log"
	"sort"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/exec"
	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/store"
)

// Strategy selects a materialization algorithm.
type Strategy int

const (
	Naive Strategy = iota
	SemiNaive
	SemiNaiveWithRepairs
)

// Reasoner materializes a fixed rule set against a triple store.
type Reasoner struct {
	Store       *store.TripleStore
	Dict        *dict.Dictionary
	Rules       []model.Rule
	Constraints []Constraint

	eval *exec.Evaluator

	// repairs caches the maximal consistent repairs found by the most
	// recent SemiNaiveWithRepairs run, for IARQuery. nil means either
	// no repair run has happened yet, or the last run found no
	// constraint violations (the whole store is the sole repair).
	repairs [][]model.Triple
}

// New creates a Reasoner over store s and dictionary d.
func New(s *store.TripleStore, d *dict.Dictionary) *Reasoner {
	return &Reasoner{Store: s, Dict: d, eval: &exec.Evaluator{Dict: d}}
}

// AddRule registers a rule for future Materialize calls.
func (r *Reasoner) AddRule(rule model.Rule) { r.Rules = append(r.Rules, rule) }

// AddConstraint registers an integrity constraint used by
// SemiNaiveWithRepairs.
func (r *Reasoner) AddConstraint(c Constraint) { r.Constraints = append(r.Constraints, c) }

// Materialize runs strategy to a fixpoint, inserting derived facts into
// the store, and returns the count of genuinely new facts inserted.
// Calling Materialize again immediately afterward inserts nothing,
// satisfying the reasoner-fixpoint invariant.
func (r *Reasoner) Materialize(strategy Strategy) (int, error) {
	switch strategy {
	case Naive:
		return r.materializeNaive()
	case SemiNaive:
		return r.materializeSemiNaive()
	case SemiNaiveWithRepairs:
		return r.materializeWithRepairs()
	default:
		return 0, errUnknownStrategy
	}
}

var errUnknownStrategy = errInternal("reason: unknown materialization strategy")

type errInternal string

func (e errInternal) Error() string { return string(e) }

// materializeNaive repeatedly joins every rule's premises against the
// full fact set, applies filters, instantiates conclusions, and
// inserts new facts, until a full round adds nothing.
func (r *Reasoner) materializeNaive() (int, error) {
	total := 0
	for {
		added := 0
		for _, rule := range r.Rules {
			facts, err := r.evalRuleFull(rule)
			if err != nil {
				log.Printf("reason: skipping rule %q: %v", rule.Name, err)
				continue
			}
			for _, t := range facts {
				if r.Store.Insert(t) {
					added++
				}
			}
		}
		total += added
		if added == 0 {
			return total, nil
		}
	}
}

// evalRuleFull evaluates rule's premises entirely against the current
// store contents (the naive strategy's only mode).
func (r *Reasoner) evalRuleFull(rule model.Rule) ([]model.Triple, error) {
	full := fullSource(r.Store)
	bindings := joinPremises(rule.Premises, func(i int, p model.Pattern, b model.Binding) []model.Binding {
		return full(p, b)
	})
	return r.instantiate(rule, bindings)
}

// materializeSemiNaive mirrors materializeNaive's fixpoint but restricts
// each round to bindings that touch the previous round's delta in at
// least one premise position, seeding delta0 with the base facts
// present before the first round.
func (r *Reasoner) materializeSemiNaive() (int, error) {
	total := 0
	delta := r.Store.Query(nil, nil, nil) // seed delta0 = base facts
	for {
		roundNew := make(map[model.Triple]bool)
		for _, rule := range r.Rules {
			facts, err := r.evalRuleSemiNaive(rule, delta)
			if err != nil {
				log.Printf("reason: skipping rule %q: %v", rule.Name, err)
				continue
			}
			for _, t := range facts {
				if !r.Store.Contains(t) {
					roundNew[t] = true
				}
			}
		}
		if len(roundNew) == 0 {
			return total, nil
		}
		var nextDelta []model.Triple
		for t := range roundNew {
			if r.Store.Insert(t) {
				nextDelta = append(nextDelta, t)
				total++
			}
		}
		delta = nextDelta
	}
}

// evalRuleSemiNaive evaluates rule once per premise position, requiring
// that position to match against delta while every other premise
// matches against the full store, then unions the results (per
// variable-binding signature) to avoid re-deriving the same fact
// multiple times within one round.
func (r *Reasoner) evalRuleSemiNaive(rule model.Rule, delta []model.Triple) ([]model.Triple, error) {
	full := fullSource(r.Store)
	seen := make(map[string]bool)
	var all []model.Binding
	for deltaIdx := range rule.Premises {
		bindings := joinPremises(rule.Premises, func(i int, p model.Pattern, b model.Binding) []model.Binding {
			if i == deltaIdx {
				return deltaSource(delta, p, b)
			}
			return full(p, b)
		})
		for _, b := range bindings {
			sig := bindingSignature(b)
			if !seen[sig] {
				seen[sig] = true
				all = append(all, b)
			}
		}
	}
	return r.instantiate(rule, all)
}

// instantiate applies rule's filters to each premise binding and
// resolves surviving bindings' conclusions into concrete facts.
func (r *Reasoner) instantiate(rule model.Rule, bindings []model.Binding) ([]model.Triple, error) {
	var out []model.Triple
	for _, b := range bindings {
		ok := true
		for _, f := range rule.Filters {
			pass, err := r.eval.EBV(f.Condition, b)
			if err != nil || !pass {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, c := range rule.Conclusions {
			out = append(out, instantiateConclusion(rule, c, b, r.Dict))
		}
	}
	return out, nil
}

// instantiateConclusion resolves a conclusion pattern against binding
// b, filling any premise-unbound variable with a deterministic
// placeholder id keyed on (rule name, variable name).
func instantiateConclusion(rule model.Rule, c model.Pattern, b model.Binding, d *dict.Dictionary) model.Triple {
	resolve := func(t model.Term) model.ID {
		if !t.IsVariable() {
			return t.ID
		}
		if id, ok := b[t.Var]; ok {
			return id
		}
		return d.Placeholder(rule.Name, t.Var)
	}
	return model.Triple{S: resolve(c.Subject), P: resolve(c.Predicate), O: resolve(c.Object)}
}

// joinPremises performs a backtracking conjunctive join over premises,
// where source(i, pattern, binding) returns the binding extensions
// premise i contributes given the bindings accumulated so far.
func joinPremises(premises []model.Pattern, source func(i int, p model.Pattern, b model.Binding) []model.Binding) []model.Binding {
	var rec func(i int, b model.Binding) []model.Binding
	rec = func(i int, b model.Binding) []model.Binding {
		if i == len(premises) {
			return []model.Binding{b}
		}
		var out []model.Binding
		for _, nb := range source(i, premises[i], b) {
			out = append(out, rec(i+1, nb)...)
		}
		return out
	}
	return rec(0, model.Binding{})
}

// fullSource returns a premise source that queries the live store,
// applying the binding accumulated so far to bound as many pattern
// positions as possible before hitting the index.
func fullSource(s *store.TripleStore) func(p model.Pattern, b model.Binding) []model.Binding {
	return func(p model.Pattern, b model.Binding) []model.Binding {
		applied := applyBinding(p, b)
		triples := s.QueryPattern(applied)
		var out []model.Binding
		for _, t := range triples {
			if nb, ok := model.Match(p, t, b); ok {
				out = append(out, nb)
			}
		}
		return out
	}
}

// deltaSource is fullSource's counterpart over an in-memory delta slice
// rather than the indexed store — deltas are small (one round's worth
// of newly derived facts), so a linear scan needs no index.
func deltaSource(delta []model.Triple, p model.Pattern, b model.Binding) []model.Binding {
	var out []model.Binding
	for _, t := range delta {
		if nb, ok := model.Match(p, t, b); ok {
			out = append(out, nb)
		}
	}
	return out
}

// applyBinding substitutes already-bound variables in p with their
// bound ids, so the store query can use an index instead of a full
// scan; variables b doesn't cover are left as-is.
func applyBinding(p model.Pattern, b model.Binding) model.Pattern {
	resolve := func(t model.Term) model.Term {
		if !t.IsVariable() {
			return t
		}
		if id, ok := b[t.Var]; ok {
			return model.Bound(id)
		}
		return t
	}
	return model.Pattern{Subject: resolve(p.Subject), Predicate: resolve(p.Predicate), Object: resolve(p.Object)}
}

// bindingSignature renders a binding as a sorted, order-independent
// string key for deduplication across the semi-naive per-premise union.
func bindingSignature(b model.Binding) string {
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	key := ""
	for _, k := range names {
		key += k + "=" + model.Triple{S: b[k]}.String() + ";"
	}
	return key
}
