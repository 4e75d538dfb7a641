// Package plan defines the logical and physical operator algebra the
// optimizer searches over and the execution engine runs: a closed sum
// type per operator kind, one struct per node.
//
// Grounded on the teacher's optimizer.QueryPlan interface
// (internal/sparql/optimizer/optimizer.go): a marker method
// (planNode()/Node()) implemented by one struct per node kind. This
// package splits that single sum type into a Logical and a Physical
// family, since the teacher's optimizer collapsed the two (it only ever
// produced one physical shape, nested-loop join), while spec.md's
// optimizer must choose among several physical implementations per
// logical node.
package plan

import "github.com/corvusdb/corvus/pkg/model"

// Logical is the marker interface implemented by every logical operator
// node.
type Logical interface{ logicalNode() }

// Physical is the marker interface implemented by every physical
// operator node.
type Physical interface{ physicalNode() }

// --- Logical operators -----------------------------------------------

// Scan is a logical scan of a triple pattern.
type Scan struct{ Pattern model.Pattern }

func (Scan) logicalNode() {}

// Selection filters Input rows by Condition.
type Selection struct {
	Input     Logical
	Condition *model.Expr
}

func (Selection) logicalNode() {}

// Projection restricts Input rows to Vars, deduplicating only if
// Distinct is set.
type Projection struct {
	Input    Logical
	Vars     []string
	Distinct bool
}

func (Projection) logicalNode() {}

// JoinKind distinguishes inner joins (plain pattern conjunction) from
// the outer/set-combining shapes SPARQL needs.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinOptional
	JoinUnion
	JoinMinus
)

// Join combines Left and Right under Kind.
type Join struct {
	Left, Right Logical
	Kind        JoinKind
}

func (Join) logicalNode() {}

// Subquery wraps Inner, projecting only ProjectedVars outward across the
// subquery boundary.
type Subquery struct {
	Inner         Logical
	ProjectedVars []string
}

func (Subquery) logicalNode() {}

// Bind computes FuncName(Args) and binds the result to OutVar for each
// row of Input.
type Bind struct {
	Input    Logical
	FuncName string
	Args     []*model.Expr
	OutVar   string
}

func (Bind) logicalNode() {}

// Values yields Rows verbatim; a nil entry in a row means UNDEF
// (unbound).
type Values struct {
	Vars []string
	Rows []map[string]*model.ID
}

func (Values) logicalNode() {}

// OrderKey is one ORDER BY key: a variable and a direction.
type OrderKey struct {
	Variable   string
	Descending bool
}

// OrderBy sorts Input by Keys, stably.
type OrderBy struct {
	Input Logical
	Keys  []OrderKey
}

func (OrderBy) logicalNode() {}

// Limit caps Input to at most N rows.
type Limit struct {
	Input Logical
	N     int
}

func (Limit) logicalNode() {}

// Offset skips the first N rows of Input.
type Offset struct {
	Input Logical
	N     int
}

func (Offset) logicalNode() {}

// AggregateFunc enumerates the supported aggregate functions.
type AggregateFunc int

const (
	AggSum AggregateFunc = iota
	AggAvg
	AggCount
	AggMin
	AggMax
)

// Aggregate is one SELECT-list aggregate: Func(Variable) AS OutVar.
// Variable == "" with Func == AggCount represents COUNT(*).
type Aggregate struct {
	Func     AggregateFunc
	Variable string
	OutVar   string
}

// GroupBy groups Input by GroupVars and computes Aggregates per group.
type GroupBy struct {
	Input      Logical
	GroupVars  []string
	Aggregates []Aggregate
}

func (GroupBy) logicalNode() {}

// --- Physical operators ------------------------------------------------

// IndexScan is the physical realization of Scan: it resolves Pattern
// against the store using whichever index fits the pattern's bound
// positions.
type IndexScan struct{ Pattern model.Pattern }

func (IndexScan) physicalNode() {}

// PhysicalSelection is Selection's physical realization.
type PhysicalSelection struct {
	Input     Physical
	Condition *model.Expr
}

func (PhysicalSelection) physicalNode() {}

// PhysicalProjection is Projection's physical realization.
type PhysicalProjection struct {
	Input    Physical
	Vars     []string
	Distinct bool
}

func (PhysicalProjection) physicalNode() {}

// HashJoin builds an in-memory hash table over Build, keyed on
// SharedVars, and probes it with Probe.
type HashJoin struct {
	Build, Probe Physical
	SharedVars   []string
	Kind         JoinKind
}

func (HashJoin) physicalNode() {}

// NestedLoopJoin is used when no shared variable exists between Left and
// Right, or when both inputs are small.
type NestedLoopJoin struct {
	Left, Right Physical
	Kind        JoinKind
}

func (NestedLoopJoin) physicalNode() {}

// ParallelJoin partitions Probe across a worker pool, building the hash
// table over Build once and probing it concurrently. Result order is
// unspecified.
type ParallelJoin struct {
	Build, Probe Physical
	SharedVars   []string
	Kind         JoinKind
	Workers      int
}

func (ParallelJoin) physicalNode() {}

// PhysicalSubquery is Subquery's physical realization.
type PhysicalSubquery struct {
	Inner         Physical
	ProjectedVars []string
}

func (PhysicalSubquery) physicalNode() {}

// PhysicalBind is Bind's physical realization.
type PhysicalBind struct {
	Input    Physical
	FuncName string
	Args     []*model.Expr
	OutVar   string
}

func (PhysicalBind) physicalNode() {}

// PhysicalValues is Values' physical realization.
type PhysicalValues struct {
	Vars []string
	Rows []map[string]*model.ID
}

func (PhysicalValues) physicalNode() {}

// PhysicalOrderBy is OrderBy's physical realization.
type PhysicalOrderBy struct {
	Input Physical
	Keys  []OrderKey
}

func (PhysicalOrderBy) physicalNode() {}

// PhysicalLimit is Limit's physical realization.
type PhysicalLimit struct {
	Input Physical
	N     int
}

func (PhysicalLimit) physicalNode() {}

// PhysicalOffset is Offset's physical realization.
type PhysicalOffset struct {
	Input Physical
	N     int
}

func (PhysicalOffset) physicalNode() {}

// PhysicalGroupBy is GroupBy's physical realization.
type PhysicalGroupBy struct {
	Input      Physical
	GroupVars  []string
	Aggregates []Aggregate
}

func (PhysicalGroupBy) physicalNode() {}
