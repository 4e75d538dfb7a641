package parser

import (
	"testing"

	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/sparql/ast"
)

// TestParseS1SimpleJoin covers spec.md §8 scenario S1: a two-triple join.
func TestParseS1SimpleJoin(t *testing.T) {
	q, err := New(`SELECT ?p ?l ?c WHERE { ?p worksAt ?l . ?l located ?c }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Select == nil {
		t.Fatal("expected a SELECT query")
	}
	if len(q.Select.Vars) != 3 {
		t.Fatalf("vars = %v, want 3", q.Select.Vars)
	}
	if len(q.Select.Where.Triples) != 2 {
		t.Fatalf("triples = %v, want 2", q.Select.Where.Triples)
	}
	t1 := q.Select.Where.Triples[0]
	if !t1.Subject.IsVariable() || t1.Subject.Var != "p" {
		t.Fatalf("subject = %+v, want variable p", t1.Subject)
	}
	if t1.Predicate.IsVariable() {
		t.Fatalf("predicate = %+v, want a bound term", t1.Predicate)
	}
}

// TestParseS2Filter covers scenario S2: a numeric FILTER.
func TestParseS2Filter(t *testing.T) {
	q, err := New(`SELECT ?e ?s WHERE { ?e annual_salary ?s FILTER(?s > 75000) }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	where := q.Select.Where
	if len(where.Filters) != 1 {
		t.Fatalf("filters = %v, want 1", where.Filters)
	}
	f := where.Filters[0]
	if f.Op != model.OpGreater {
		t.Fatalf("op = %v, want OpGreater", f.Op)
	}
	if f.Left.Variable != "s" {
		t.Fatalf("left = %+v, want variable s", f.Left)
	}
	if f.Right.Literal != "75000" {
		t.Fatalf("right = %+v, want literal 75000", f.Right)
	}
}

// TestParseS3Aggregation covers scenario S3: a bare aggregate select list.
func TestParseS3Aggregation(t *testing.T) {
	q, err := New(`SELECT AVG(?s) AS ?avg WHERE { ?e annual_salary ?s }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Select.Aggregates) != 1 {
		t.Fatalf("aggregates = %v, want 1", q.Select.Aggregates)
	}
	agg := q.Select.Aggregates[0]
	if agg.FuncName != "AVG" || agg.Variable != "s" || agg.OutVar != "avg" {
		t.Fatalf("aggregate = %+v, unexpected", agg)
	}
}

func TestParseOptionalUnionMinus(t *testing.T) {
	q, err := New(`SELECT ?x WHERE {
		?x type person .
		OPTIONAL { ?x nickname ?n }
		{ ?x city ghent } UNION { ?x city kortrijk }
		MINUS { ?x banned true }
	}`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	where := q.Select.Where
	if len(where.Children) != 3 {
		t.Fatalf("children = %d, want 3 (optional, union, minus)", len(where.Children))
	}
	if where.Children[0].Kind != ast.PatternOptional {
		t.Fatalf("children[0].Kind = %v, want PatternOptional", where.Children[0].Kind)
	}
	if where.Children[1].Kind != ast.PatternUnion || len(where.Children[1].Children) != 2 {
		t.Fatalf("children[1] = %+v, want a 2-armed PatternUnion", where.Children[1])
	}
	if where.Children[2].Kind != ast.PatternMinus {
		t.Fatalf("children[2].Kind = %v, want PatternMinus", where.Children[2].Kind)
	}
}

func TestParseBindAndValues(t *testing.T) {
	q, err := New(`SELECT ?x ?y WHERE {
		?x age ?a .
		BIND(?a AS ?y)
		VALUES (?x) { (alice) (bob) }
	}`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	where := q.Select.Where
	if len(where.Binds) != 1 {
		t.Fatalf("binds = %v, want 1", where.Binds)
	}
	if where.Values == nil || len(where.Values.Rows) != 2 {
		t.Fatalf("values = %+v, want 2 rows", where.Values)
	}
}

func TestParseInsertData(t *testing.T) {
	q, err := New(`INSERT DATA { peter worksAt kulak . kulak located kortrijk }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Insert == nil || len(q.Insert.Triples) != 2 {
		t.Fatalf("insert = %+v, want 2 triples", q.Insert)
	}
}

// TestParseSemicolonShorthand covers the `;` predicate-object-list
// shorthand within a single triple block.
func TestParseSemicolonShorthand(t *testing.T) {
	q, err := New(`INSERT DATA { peter worksAt kulak ; knows charlotte }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Insert.Triples) != 2 {
		t.Fatalf("triples = %v, want 2 from ';' shorthand", q.Insert.Triples)
	}
	if q.Insert.Triples[1].Predicate.Lexical != "<knows>" {
		t.Fatalf("second triple predicate = %+v", q.Insert.Triples[1].Predicate)
	}
}

// TestParseRule covers spec.md §6's RULE extension, grounded on scenario
// S4's transitivity rule.
func TestParseRule(t *testing.T) {
	q, err := New(`RULE :Transitive(?a,?b,?c) :- CONSTRUCT { ?a likes ?c } WHERE { ?a likes ?b . ?b likes ?c }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Rule == nil {
		t.Fatal("expected a RULE definition")
	}
	if q.Rule.Name != "Transitive" {
		t.Fatalf("name = %q", q.Rule.Name)
	}
	if len(q.Rule.Params) != 3 {
		t.Fatalf("params = %v, want 3", q.Rule.Params)
	}
	if len(q.Rule.Conclusions) != 1 {
		t.Fatalf("conclusions = %v, want 1", q.Rule.Conclusions)
	}
	if len(q.Rule.Where.Triples) != 2 {
		t.Fatalf("premises = %v, want 2", q.Rule.Where.Triples)
	}
}

// TestParseRegisterStream covers spec.md §6's REGISTER streaming
// extension, grounded on scenario S5's window parameters.
func TestParseRegisterStream(t *testing.T) {
	q, err := New(`REGISTER RSTREAM out AS SELECT ?s ?o FROM NAMED WINDOW :w ON ?s RANGE PT10S STEP PT2S WHERE { WINDOW :w { ?s p ?o } }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Stream == nil {
		t.Fatal("expected a stream registration")
	}
	if q.Stream.Mode != 0 {
		t.Fatalf("mode = %v, want StreamR (0)", q.Stream.Mode)
	}
	if q.Stream.WindowName != "w" {
		t.Fatalf("window name = %q", q.Stream.WindowName)
	}
	if q.Stream.OnVar != "s" {
		t.Fatalf("on var = %q, want s", q.Stream.OnVar)
	}
	if q.Stream.Width != 10 || q.Stream.Slide != 2 {
		t.Fatalf("width/slide = %d/%d, want 10/2", q.Stream.Width, q.Stream.Slide)
	}
	if len(q.Stream.Select.Where.Triples) != 1 {
		t.Fatalf("select triples = %v, want 1", q.Stream.Select.Where.Triples)
	}
}

func TestParseLimitOffsetOrderBy(t *testing.T) {
	q, err := New(`SELECT ?x WHERE { ?x age ?a } ORDER BY DESC(?a) LIMIT 5 OFFSET 2`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Select.OrderBy) != 1 || !q.Select.OrderBy[0].Descending || q.Select.OrderBy[0].Variable != "a" {
		t.Fatalf("order by = %+v", q.Select.OrderBy)
	}
	if q.Select.Limit == nil || *q.Select.Limit != 5 {
		t.Fatalf("limit = %v, want 5", q.Select.Limit)
	}
	if q.Select.Offset == nil || *q.Select.Offset != 2 {
		t.Fatalf("offset = %v, want 2", q.Select.Offset)
	}
}

func TestParsePrefixedIRI(t *testing.T) {
	q, err := New(`PREFIX ex: <http://example.org/>
		SELECT ?x WHERE { ?x ex:worksAt ex:kulak }`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	triple := q.Select.Where.Triples[0]
	if triple.Predicate.Lexical != "<http://example.org/worksAt>" {
		t.Fatalf("predicate = %+v", triple.Predicate)
	}
}
