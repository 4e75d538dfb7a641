// Package model defines the core value types shared across the store,
// planner, executor, and reasoner: term ids, triples, triple patterns,
// bindings, and rules.
package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvusdb/corvus/pkg/dict"
)

// ID is a dictionary-assigned term id. It is an alias for dict.ID so
// every package can speak the same currency without importing dict
// directly for the common case.
type ID = dict.ID

// Unknown is the reserved id meaning "no such term".
const Unknown = dict.Unknown

// Triple is a (subject, predicate, object) statement over dictionary ids.
// Triples are value types; equality is structural.
type Triple struct {
	S, P, O ID
}

// Less orders triples lexicographically on (S, P, O), the store's
// canonical total order.
func (t Triple) Less(other Triple) bool {
	if t.S != other.S {
		return t.S < other.S
	}
	if t.P != other.P {
		return t.P < other.P
	}
	return t.O < other.O
}

func (t Triple) String() string {
	return fmt.Sprintf("(%d,%d,%d)", t.S, t.P, t.O)
}

// TimestampedTriple is a triple observed at a point in time, used only by
// the streaming engine's sliding windows.
type TimestampedTriple struct {
	Triple    Triple
	Timestamp int64 // epoch seconds
}

// Term is one position of a triple pattern: either a bound id or a
// variable name. A Term is a variable iff Var != "".
type Term struct {
	ID  ID
	Var string
}

// IsVariable reports whether t names a variable rather than a bound id.
func (t Term) IsVariable() bool { return t.Var != "" }

// Bound constructs a bound-id term.
func Bound(id ID) Term { return Term{ID: id} }

// Variable constructs a variable term.
func Variable(name string) Term { return Term{Var: name} }

func (t Term) String() string {
	if t.IsVariable() {
		return "?" + t.Var
	}
	return fmt.Sprintf("%d", t.ID)
}

// Pattern is a triple pattern: each position is either bound or a
// variable. The same variable name may recur across positions, in which
// case a match must bind it consistently.
type Pattern struct {
	Subject, Predicate, Object Term
}

// Variables returns the distinct variable names appearing in p, in
// subject/predicate/object order, first occurrence only.
func (p Pattern) Variables() []string {
	var vars []string
	seen := make(map[string]bool, 3)
	for _, t := range [...]Term{p.Subject, p.Predicate, p.Object} {
		if t.IsVariable() && !seen[t.Var] {
			seen[t.Var] = true
			vars = append(vars, t.Var)
		}
	}
	return vars
}

func (p Pattern) String() string {
	return fmt.Sprintf("(%s %s %s)", p.Subject, p.Predicate, p.Object)
}

// Binding maps variable names to ids. A nil Binding is a valid empty
// binding.
type Binding map[string]ID

// Clone returns a shallow copy of b.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Extend returns a copy of b with var bound to id. It does not mutate b.
func (b Binding) Extend(v string, id ID) Binding {
	out := b.Clone()
	out[v] = id
	return out
}

// Match attempts to unify pattern against triple under the existing
// binding b. It returns the extended binding and true on success; on a
// conflicting rebinding of a variable, or a bound-term mismatch, it
// returns (nil, false). b itself is never mutated.
func Match(p Pattern, t Triple, b Binding) (Binding, bool) {
	out := b.Clone()
	terms := [...]Term{p.Subject, p.Predicate, p.Object}
	vals := [...]ID{t.S, t.P, t.O}
	for i, term := range terms {
		val := vals[i]
		if term.IsVariable() {
			if existing, ok := out[term.Var]; ok {
				if existing != val {
					return nil, false
				}
				continue
			}
			out[term.Var] = val
			continue
		}
		if term.ID != val {
			return nil, false
		}
	}
	return out, true
}

// Instantiate resolves a pattern against a binding, producing a concrete
// triple. It returns false if any position is an unbound variable.
func Instantiate(p Pattern, b Binding) (Triple, bool) {
	resolve := func(t Term) (ID, bool) {
		if !t.IsVariable() {
			return t.ID, true
		}
		id, ok := b[t.Var]
		return id, ok
	}
	s, ok := resolve(p.Subject)
	if !ok {
		return Triple{}, false
	}
	pr, ok := resolve(p.Predicate)
	if !ok {
		return Triple{}, false
	}
	o, ok := resolve(p.Object)
	if !ok {
		return Triple{}, false
	}
	return Triple{S: s, P: pr, O: o}, true
}

// Operator enumerates the condition operators a Filter may use, per the
// comparison/logical/arithmetic/regex/type-test families.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAnd
	OpOr
	OpNot
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpRegex
	OpLang
	OpDatatype
	OpBound
)

// Expr is a filter expression tree. Which payload fields are meaningful
// depends on IsLeaf and Op, mirroring the teacher's discriminated
// BinaryExpression/UnaryExpression/VariableExpression/LiteralExpression
// split collapsed into a single node type.
type Expr struct {
	Op       Operator
	Left     *Expr
	Right    *Expr
	Variable string // for leaf variable references
	Literal  string // for leaf literal lexical forms; also the regex pattern for OpRegex
	IsLeaf   bool
}

// Var builds a leaf variable-reference expression.
func Var(name string) *Expr { return &Expr{IsLeaf: true, Variable: name} }

// Lit builds a leaf literal expression from a dictionary lexical form.
func Lit(lexical string) *Expr { return &Expr{IsLeaf: true, Literal: lexical} }

// Bin builds a binary expression.
func Bin(op Operator, left, right *Expr) *Expr { return &Expr{Op: op, Left: left, Right: right} }

// Un builds a unary expression.
func Un(op Operator, operand *Expr) *Expr { return &Expr{Op: op, Left: operand} }

// Filter is a named condition attached to a rule or a SPARQL FILTER
// clause: a boolean expression over the pattern's variables.
type Filter struct {
	Condition *Expr
}

// Rule is an ordered list of premise patterns, zero or more conclusion
// patterns, and zero or more filters. A single-conclusion rule is simply
// a Conclusions slice of length one; there is no separate type for it
// (resolves spec's single- vs. multi-conclusion Open Question).
type Rule struct {
	Name        string
	Premises    []Pattern
	Conclusions []Pattern
	Filters     []Filter
}

// ConclusionVariables returns the set of variable names referenced by r's
// conclusions that are not bound by any premise. Per the reasoner's
// instantiation rule, these must be filled with a synthetic placeholder
// id rather than left unbound.
func (r Rule) ConclusionVariables() []string {
	premiseVars := make(map[string]bool)
	for _, p := range r.Premises {
		for _, v := range p.Variables() {
			premiseVars[v] = true
		}
	}
	var unbound []string
	seen := make(map[string]bool)
	for _, c := range r.Conclusions {
		for _, v := range c.Variables() {
			if !premiseVars[v] && !seen[v] {
				seen[v] = true
				unbound = append(unbound, v)
			}
		}
	}
	sort.Strings(unbound)
	return unbound
}

func (r Rule) String() string {
	var premises, conclusions []string
	for _, p := range r.Premises {
		premises = append(premises, p.String())
	}
	for _, c := range r.Conclusions {
		conclusions = append(conclusions, c.String())
	}
	return fmt.Sprintf("%s: %s :- %s", r.Name, strings.Join(conclusions, ", "), strings.Join(premises, ", "))
}

// SortTriples sorts triples in place by the canonical (S, P, O) order.
func SortTriples(triples []Triple) {
	sort.Slice(triples, func(i, j int) bool { return triples[i].Less(triples[j]) })
}
