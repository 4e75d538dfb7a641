package exec

import (
	"context"
	"strconv"
	"testing"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/plan"
	"github.com/corvusdb/corvus/pkg/store"
)

func iri(s string) string { return "<" + s + ">" }

func setupS1(t *testing.T) (*store.TripleStore, *dict.Dictionary) {
	t.Helper()
	s := store.New()
	d := dict.New()
	worksAt := d.Encode(iri("worksAt"))
	located := d.Encode(iri("located"))
	peter := d.Encode(iri("peter"))
	kulak := d.Encode(iri("kulak"))
	kortrijk := d.Encode(iri("kortrijk"))
	charlotte := d.Encode(iri("charlotte"))
	ughent := d.Encode(iri("ughent"))
	ghent := d.Encode(iri("ghent"))
	s.InsertAll([]model.Triple{
		{S: peter, P: worksAt, O: kulak},
		{S: kulak, P: located, O: kortrijk},
		{S: charlotte, P: worksAt, O: ughent},
		{S: ughent, P: located, O: ghent},
	})
	return s, d
}

// TestScanOperatorStateMachine drives a single IndexScan through the
// full Unopened -> Ready -> Emitting -> Exhausted -> Closed lifecycle
// and checks Next after Exhausted/Close behaves per contract.
func TestScanOperatorStateMachine(t *testing.T) {
	s, d := setupS1(t)
	worksAtID, _ := d.Lookup(iri("worksAt"))
	e := NewEngine(s, d)
	op, err := e.Build(plan.IndexScan{Pattern: model.Pattern{
		Subject: model.Variable("p"), Predicate: model.Bound(worksAtID), Object: model.Variable("l"),
	}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sc := op.(*scanOp)
	if sc.state != Unopened {
		t.Fatalf("expected Unopened before Open, got %v", sc.state)
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if sc.state != Ready {
		t.Fatalf("expected Ready after Open, got %v", sc.state)
	}
	var rows int
	for op.Next(ctx) {
		rows++
		if sc.state != Emitting {
			t.Fatalf("expected Emitting while rows flow, got %v", sc.state)
		}
	}
	if rows != 2 {
		t.Fatalf("expected 2 worksAt triples, got %d", rows)
	}
	if sc.state != Exhausted {
		t.Fatalf("expected Exhausted once rows run out, got %v", sc.state)
	}
	if op.Next(ctx) {
		t.Fatalf("Next after Exhausted must return false")
	}
	if err := op.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if sc.state != Closed {
		t.Fatalf("expected Closed after Close, got %v", sc.state)
	}
	if op.Next(ctx) {
		t.Fatalf("Next after Close must return false")
	}
}

// TestS1SimpleJoin runs the worksAt/located join end to end and checks
// the exact two-row result the scenario names.
func TestS1SimpleJoin(t *testing.T) {
	s, d := setupS1(t)
	worksAtID, _ := d.Lookup(iri("worksAt"))
	locatedID, _ := d.Lookup(iri("located"))

	logical := plan.Join{
		Left:  plan.Scan{Pattern: model.Pattern{Subject: model.Variable("p"), Predicate: model.Bound(worksAtID), Object: model.Variable("l")}},
		Right: plan.Scan{Pattern: model.Pattern{Subject: model.Variable("l"), Predicate: model.Bound(locatedID), Object: model.Variable("c")}},
		Kind:  plan.JoinInner,
	}

	e := NewEngine(s, d)
	op, err := e.Build(physicalizeJoin(t, logical))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer op.Close()

	got := map[string]bool{}
	for op.Next(ctx) {
		b := op.Binding()
		p, _ := d.Decode(b["p"])
		c, _ := d.Decode(b["c"])
		got[p+"->"+c] = true
	}
	if err := op.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]bool{
		iri("peter") + "->" + iri("kortrijk"):     true,
		iri("charlotte") + "->" + iri("ghent"): true,
	}
	if len(got) != 2 || !got[iri("peter")+"->"+iri("kortrijk")] || !got[iri("charlotte")+"->"+iri("ghent")] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// physicalizeJoin hand-builds the physical join a correctly wired
// optimizer would produce for a two-scan inner join sharing one
// variable, so this test doesn't need to depend on pkg/optimizer.
func physicalizeJoin(t *testing.T, j plan.Join) plan.Physical {
	t.Helper()
	left, ok := j.Left.(plan.Scan)
	if !ok {
		t.Fatalf("expected left scan")
	}
	right, ok := j.Right.(plan.Scan)
	if !ok {
		t.Fatalf("expected right scan")
	}
	return plan.HashJoin{
		Build:      plan.IndexScan{Pattern: right.Pattern},
		Probe:      plan.IndexScan{Pattern: left.Pattern},
		SharedVars: []string{"l"},
		Kind:       plan.JoinInner,
	}
}

// TestS2Filter checks FILTER(?s > 75000) over four salary facts.
func TestS2Filter(t *testing.T) {
	s := store.New()
	d := dict.New()
	salary := d.Encode(iri("annual_salary"))
	salaries := []int{73681, 83504, 90065, 67751}
	var triples []model.Triple
	for i, v := range salaries {
		emp := d.Encode(iri("emp" + strconv.Itoa(i)))
		lit := d.Encode("\"" + strconv.Itoa(v) + "\"^^<http://www.w3.org/2001/XMLSchema#integer>")
		triples = append(triples, model.Triple{S: emp, P: salary, O: lit})
	}
	s.InsertAll(triples)

	e := NewEngine(s, d)
	phys := plan.PhysicalSelection{
		Input:     plan.IndexScan{Pattern: model.Pattern{Subject: model.Variable("e"), Predicate: model.Bound(salary), Object: model.Variable("s")}},
		Condition: model.Bin(model.OpGreater, model.Var("s"), model.Lit("\"75000\"^^<http://www.w3.org/2001/XMLSchema#integer>")),
	}
	op, err := e.Build(phys)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer op.Close()

	var got []int
	for op.Next(ctx) {
		b := op.Binding()
		lex, _ := d.Decode(b["s"])
		v, err := parseIntLiteral(lex)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		got = append(got, v)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows above 75000, got %v", got)
	}
}

func parseIntLiteral(lex string) (int, error) {
	start := 1
	end := 1
	for end < len(lex) && lex[end] != '"' {
		end++
	}
	return strconv.Atoi(lex[start:end])
}

// TestS3Aggregation checks AVG(?s) over the same four salaries.
func TestS3Aggregation(t *testing.T) {
	s := store.New()
	d := dict.New()
	salary := d.Encode(iri("annual_salary"))
	salaries := []int{73681, 83504, 90065, 67751}
	var triples []model.Triple
	for i, v := range salaries {
		emp := d.Encode(iri("emp" + strconv.Itoa(i)))
		lit := d.Encode("\"" + strconv.Itoa(v) + "\"^^<http://www.w3.org/2001/XMLSchema#integer>")
		triples = append(triples, model.Triple{S: emp, P: salary, O: lit})
	}
	s.InsertAll(triples)

	e := NewEngine(s, d)
	phys := plan.PhysicalGroupBy{
		Input:      plan.IndexScan{Pattern: model.Pattern{Subject: model.Variable("e"), Predicate: model.Bound(salary), Object: model.Variable("s")}},
		Aggregates: []plan.Aggregate{{Func: plan.AggAvg, Variable: "s", OutVar: "avg"}},
	}
	op, err := e.Build(phys)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer op.Close()

	if !op.Next(ctx) {
		t.Fatalf("expected one aggregate row")
	}
	b := op.Binding()
	lex, _ := d.Decode(b["avg"])
	got, err := parseDoubleLiteral(lex)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := 78750.25
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if op.Next(ctx) {
		t.Fatalf("expected exactly one group")
	}
}

func parseDoubleLiteral(lex string) (float64, error) {
	start := 1
	end := 1
	for end < len(lex) && lex[end] != '"' {
		end++
	}
	return strconv.ParseFloat(lex[start:end], 64)
}

// TestLimitOffset exercises PhysicalLimit/PhysicalOffset together.
func TestLimitOffset(t *testing.T) {
	s, d := setupS1(t)
	worksAtID, _ := d.Lookup(iri("worksAt"))
	e := NewEngine(s, d)
	phys := plan.PhysicalLimit{
		Input: plan.PhysicalOffset{
			Input: plan.IndexScan{Pattern: model.Pattern{Subject: model.Variable("p"), Predicate: model.Bound(worksAtID), Object: model.Variable("l")}},
			N:     1,
		},
		N: 1,
	}
	op, err := e.Build(phys)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer op.Close()
	count := 0
	for op.Next(ctx) {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row after offset 1/limit 1, got %d", count)
	}
}

// TestOptionalJoinPreservesUnmatchedLeft checks that an OPTIONAL join
// still emits the left row, with the right variable absent, when no
// right-side row matches.
func TestOptionalJoinPreservesUnmatchedLeft(t *testing.T) {
	s, d := setupS1(t)
	worksAtID, _ := d.Lookup(iri("worksAt"))
	locatedID, _ := d.Lookup(iri("located"))
	// Add a worker with no located fact for their workplace.
	dave := d.Encode(iri("dave"))
	mystery := d.Encode(iri("mystery"))
	s.Insert(model.Triple{S: dave, P: worksAtID, O: mystery})

	e := NewEngine(s, d)
	phys := plan.HashJoin{
		Build:      plan.IndexScan{Pattern: model.Pattern{Subject: model.Variable("l"), Predicate: model.Bound(locatedID), Object: model.Variable("c")}},
		Probe:      plan.IndexScan{Pattern: model.Pattern{Subject: model.Variable("p"), Predicate: model.Bound(worksAtID), Object: model.Variable("l")}},
		SharedVars: []string{"l"},
		Kind:       plan.JoinOptional,
	}
	op, err := e.Build(phys)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer op.Close()

	sawDaveUnbound := false
	for op.Next(ctx) {
		b := op.Binding()
		p, _ := d.Decode(b["p"])
		if p == iri("dave") {
			if _, bound := b["c"]; bound {
				t.Fatalf("expected ?c unbound for dave")
			}
			sawDaveUnbound = true
		}
	}
	if !sawDaveUnbound {
		t.Fatalf("expected to see dave's row with ?c left unbound")
	}
}

// TestHashJoinMinusNeverEmitsMergedRow checks that a HashJoin built
// with Kind: JoinMinus, same as NestedLoopJoin, only ever emits the
// bare left (probe) row for a left row with no compatible right-side
// match — a left row that DOES have a match must be excluded entirely,
// never emitted as a merged row. Without this, MINUS's result would
// depend on whether the optimizer picked HashJoin or NestedLoopJoin for
// it, violating plan-independent query semantics.
func TestHashJoinMinusNeverEmitsMergedRow(t *testing.T) {
	s, d := setupS1(t)
	worksAtID, _ := d.Lookup(iri("worksAt"))
	locatedID, _ := d.Lookup(iri("located"))
	// Add a worker with no located fact for their workplace, so they
	// are the sole row MINUS should keep.
	dave := d.Encode(iri("dave"))
	mystery := d.Encode(iri("mystery"))
	s.Insert(model.Triple{S: dave, P: worksAtID, O: mystery})

	e := NewEngine(s, d)
	phys := plan.HashJoin{
		Build:      plan.IndexScan{Pattern: model.Pattern{Subject: model.Variable("l"), Predicate: model.Bound(locatedID), Object: model.Variable("c")}},
		Probe:      plan.IndexScan{Pattern: model.Pattern{Subject: model.Variable("p"), Predicate: model.Bound(worksAtID), Object: model.Variable("l")}},
		SharedVars: []string{"l"},
		Kind:       plan.JoinMinus,
	}
	op, err := e.Build(phys)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()
	if err := op.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer op.Close()

	var rows []model.Binding
	for op.Next(ctx) {
		rows = append(rows, op.Binding().Clone())
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 row (dave, whose org has no located fact), got %d: %+v", len(rows), rows)
	}
	row := rows[0]
	p, _ := d.Decode(row["p"])
	if p != iri("dave") {
		t.Fatalf("expected dave's row, got %s", p)
	}
	if _, bound := row["c"]; bound {
		t.Fatalf("MINUS must never bind the right side's variable into the emitted row, got ?c = %v", row["c"])
	}
}
