// Package ast defines the reduced SPARQL query surface SPEC_FULL.md
// §6 names: SELECT with FILTER/OPTIONAL/UNION/MINUS/BIND/VALUES/GROUP
// BY/ORDER BY/LIMIT/OFFSET/aggregates, the RULE extension, and the
// REGISTER streaming extension.
//
// Grounded on the teacher's internal/sparql/parser/ast.go
// (Query/SelectQuery/GraphPattern/TriplePattern/Filter/Expression
// shape). Term and TriplePattern hold raw lexical strings (a variable
// name or a lexical form) rather than model.Term/model.Pattern, because
// dictionary ids are only assigned at plan-build time (see
// parser.Translate); model.Expr is reused directly, since its leaves
// already carry lexical strings.
package ast

import "github.com/corvusdb/corvus/pkg/model"

// Query is the root of a parsed query: exactly one of the fields below
// is non-nil, mirroring the teacher's single-Query/tagged-union shape.
type Query struct {
	Select *SelectQuery
	Insert *InsertQuery
	Rule   *RuleDef
	Stream *StreamRegistration
}

// SelectQuery is a SELECT query over a graph pattern.
type SelectQuery struct {
	Vars       []string // empty means SELECT *
	Distinct   bool
	Where      *GraphPattern
	GroupVars  []string
	Aggregates []Aggregate
	OrderBy    []OrderKey
	Limit      *int
	Offset     *int
}

// InsertQuery is an INSERT DATA-style update: ground triples only, no
// WHERE clause (per spec.md §6's SPARQL surface: "Accepts SELECT,
// INSERT").
type InsertQuery struct {
	Triples []TriplePattern
}

// RuleDef is the `RULE :Name(?v1,…) :- CONSTRUCT {…} WHERE {…}`
// extension (spec.md §6).
type RuleDef struct {
	Name        string
	Params      []string
	Conclusions []TriplePattern
	Where       *GraphPattern
}

// Term is one position of a parsed triple pattern: either a variable
// name or a dictionary-ready lexical form (`<iri>`, `"v"`, `"v"@lang`,
// `"v"^^<dt>`, `_:b`). Unlike model.Term, it is not yet resolved to an
// id — that happens at plan-build time, once a Dictionary is available
// to encode it.
type Term struct {
	Var     string
	Lexical string
}

// IsVariable reports whether t names a variable.
func (t Term) IsVariable() bool { return t.Var != "" }

// TriplePattern is a parsed (subject, predicate, object) pattern before
// dictionary encoding.
type TriplePattern struct {
	Subject, Predicate, Object Term
}

// StreamMode mirrors the REGISTER extension's [R|I|D]STREAM choice.
type StreamMode int

const (
	StreamR StreamMode = iota
	StreamI
	StreamD
)

// StreamRegistration is `REGISTER [R|I|D]STREAM <iri> AS SELECT … FROM
// NAMED WINDOW :w ON ?s [RANGE PTnM STEP PTnM] WHERE { WINDOW :w {…} }`.
type StreamRegistration struct {
	Mode       StreamMode
	Name       string
	WindowName string
	OnVar      string // the ?var in "ON ?var" the window's timestamp is attached to
	Width      int64  // seconds, from RANGE PTnM
	Slide      int64  // seconds, from STEP PTnM
	Select     *SelectQuery
}

// GraphPatternKind distinguishes the shapes a GraphPattern's Children
// combine under.
type GraphPatternKind int

const (
	PatternBasic GraphPatternKind = iota
	PatternOptional
	PatternUnion
	PatternMinus
)

// GraphPattern is a basic graph pattern (a conjunction of triple
// patterns plus filters/binds) or a combinator over child patterns.
type GraphPattern struct {
	Kind     GraphPatternKind
	Triples  []TriplePattern
	Filters  []*model.Expr
	Binds    []Bind
	Values   *ValuesBlock
	Children []*GraphPattern // for Optional/Union/Minus: combined with Left (the basic pattern collected so far)
}

// Bind is a BIND(Expr AS ?var) clause.
type Bind struct {
	Expr     *model.Expr
	Variable string
}

// ValuesBlock is a VALUES (?v1 …) { (…) … } clause. A variable with no
// key in a row's map is UNDEF in that row.
type ValuesBlock struct {
	Vars []string
	Rows []map[string]string // string lexical forms; resolved to ids at plan-build time
}

// Aggregate is one SELECT-list aggregate expression.
type Aggregate struct {
	FuncName string // "SUM" | "AVG" | "COUNT" | "MIN" | "MAX"
	Variable string // "" for COUNT(*)
	OutVar   string
}

// OrderKey is one ORDER BY key.
type OrderKey struct {
	Variable   string
	Descending bool
}
