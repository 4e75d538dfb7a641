// Command corvus is a minimal REPL-style driver wiring the dictionary,
// triple store, reasoner, optimizer, executor, and streaming engine
// together for manual exercising of the pieces built under pkg/. It is
// not a production CLI — no flags, no HTTP endpoint, no persistence
// (an explicit non-goal/external collaborator per spec.md §1); it
// exists to run a fixed demo script and a `query`/`repl` subcommand
// pair, shaped like the teacher's cmd/trigo/main.go `query`/`serve`,
// generalized from "one hardcoded triplestore + one hardcoded query"
// to this module's SELECT/INSERT/RULE/REGISTER statement surface.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/corvusdb/corvus/pkg/cost"
	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/exec"
	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/optimizer"
	"github.com/corvusdb/corvus/pkg/reason"
	"github.com/corvusdb/corvus/pkg/sparql/ast"
	"github.com/corvusdb/corvus/pkg/sparql/parser"
	"github.com/corvusdb/corvus/pkg/stats"
	"github.com/corvusdb/corvus/pkg/store"
	"github.com/corvusdb/corvus/pkg/stream"
)

// session bundles the runtime dependencies one REPL session shares
// across statements, mirroring the teacher's "create storage, create
// triplestore, reuse for every command" wiring in runDemo/runQuery.
type session struct {
	store     *store.TripleStore
	dict      *dict.Dictionary
	reasoner  *reason.Reasoner
	streamsOn map[string]*stream.ContinuousQuery
}

func newSession() *session {
	s := store.New()
	d := dict.New()
	return &session{
		store:     s,
		dict:      d,
		reasoner:  reason.New(s, d),
		streamsOn: make(map[string]*stream.ContinuousQuery),
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: corvus <command> [args]")
		fmt.Println("Commands:")
		fmt.Println("  demo       - run the worked scenarios from spec.md §5 and print results")
		fmt.Println("  query <q>  - parse and run a single SELECT/INSERT/RULE/REGISTER statement")
		fmt.Println("  repl       - read statements from stdin, one per line, until EOF")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		runDemo()
	case "query":
		if len(os.Args) < 3 {
			fmt.Println("Usage: corvus query <statement>")
			os.Exit(1)
		}
		s := newSession()
		runStatement(s, os.Args[2])
	case "repl":
		runREPL()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func runREPL() {
	s := newSession()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		runStatement(s, line)
	}
}

// runDemo inserts the S1 worked scenario's facts, runs the S1 join plus
// a filter (?city = ghent) and a per-city COUNT aggregation over them,
// registers and materializes a Colocated rule, and runs one tick of a
// sliding-window streaming query — the same
// "insert sample data, then query it" shape as the teacher's runDemo,
// widened to exercise every statement kind this module adds.
func runDemo() {
	fmt.Println("=== corvus demo ===")
	s := newSession()

	fmt.Println("\n-- inserting facts --")
	runStatement(s, `INSERT DATA { peter worksAt kulak . kulak located kortrijk . charlotte worksAt ughent . ughent located ghent . }`)

	fmt.Println("\n-- S1: simple join --")
	runStatement(s, `SELECT ?p ?city WHERE { ?p worksAt ?org . ?org located ?city . }`)

	fmt.Println("\n-- S2: filter --")
	runStatement(s, `SELECT ?p ?city WHERE { ?p worksAt ?org . ?org located ?city . FILTER(?city = <ghent>) }`)

	fmt.Println("\n-- S3: aggregation --")
	runStatement(s, `SELECT ?city (COUNT(?p) AS ?n) WHERE { ?p worksAt ?org . ?org located ?city . } GROUP BY ?city`)

	fmt.Println("\n-- S4: rule --")
	runStatement(s, `RULE :Colocated(?p,?q) :- CONSTRUCT { ?p colocatedWith ?q . } WHERE { ?p worksAt ?o1 . ?q worksAt ?o2 . ?o1 located ?c . ?o2 located ?c . }`)
	n, err := s.reasoner.Materialize(reason.SemiNaive)
	if err != nil {
		log.Fatalf("materialize: %v", err)
	}
	fmt.Printf("derived %d new facts\n", n)

	fmt.Println("\n-- S5: streaming query over a sliding window --")
	runStatement(s, `REGISTER RSTREAM out AS SELECT ?p ?w ?o FROM NAMED WINDOW :w ON ?p RANGE PT10S STEP PT2S WHERE { WINDOW :w { ?p worksAt ?w . ?w located ?o . } }`)
	runStatement(s, `:stream out add 0 peter worksAt kulak`)
	runStatement(s, `:stream out add 1 kulak located kortrijk`)
	runStatement(s, `:stream out tick`)

	fmt.Println("\n=== demo complete ===")
}

// runStatement parses one statement and dispatches it against s,
// printing results (or an error) to stdout. A leading ":" introduces a
// meta-command outside the SPARQL grammar for feeding and ticking a
// registered stream (":stream <name> add <ts> <s> <p> <o>" /
// ":stream <name> tick"), since REGISTER's own grammar only names the
// query, not the out-of-band data-arrival and clock-tick events spec.md
// §4.J describes.
func runStatement(s *session, text string) {
	if strings.HasPrefix(text, ":") {
		runMetaCommand(s, text)
		return
	}
	q, err := parser.New(text).Parse()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	switch {
	case q.Select != nil:
		runSelect(s, q.Select)
	case q.Insert != nil:
		runInsert(s, q.Insert)
	case q.Rule != nil:
		runRule(s, q.Rule)
	case q.Stream != nil:
		runRegister(s, q.Stream)
	}
}

func runSelect(s *session, sel *ast.SelectQuery) {
	logical, err := parser.Translate(sel, s.dict)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	est := cost.New(stats.New(s.store))
	phys := optimizer.New(est).Optimize(logical)
	rows, err := exec.NewEngine(s.store, s.dict).Run(phys)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	printRows(rows)
}

func runInsert(s *session, ins *ast.InsertQuery) {
	triples := make([]model.Triple, 0, len(ins.Triples))
	for _, tp := range ins.Triples {
		sID := s.dict.Encode(tp.Subject.Lexical)
		pID := s.dict.Encode(tp.Predicate.Lexical)
		oID := s.dict.Encode(tp.Object.Lexical)
		triples = append(triples, model.Triple{S: sID, P: pID, O: oID})
	}
	n := s.store.InsertAll(triples)
	fmt.Printf("inserted %d triples\n", n)
}

func runRule(s *session, r *ast.RuleDef) {
	rule, err := parser.TranslateRule(r, s.dict)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	s.reasoner.AddRule(rule)
	fmt.Printf("registered rule %s\n", rule.Name)
}

// runRegister wires a REGISTER statement to a live stream.Window +
// stream.ContinuousQuery pair: the query's WHERE clause (flattened from
// its WINDOW :w {...} wrapper by the parser) is translated and run
// against a throwaway store seeded from the window's current snapshot
// on every tick, matching stream.Eval's store-agnostic contract.
func runRegister(s *session, reg *ast.StreamRegistration) {
	win := stream.NewWindow(reg.Width, reg.Slide)

	eval := func(snapshot []model.Triple) []model.Triple {
		snapStore := store.New()
		snapStore.InsertAll(snapshot)
		logical, err := parser.Translate(reg.Select, s.dict)
		if err != nil {
			log.Printf("stream %s: translate: %v", reg.Name, err)
			return nil
		}
		est := cost.New(stats.New(snapStore))
		phys := optimizer.New(est).Optimize(logical)
		rows, err := exec.NewEngine(snapStore, s.dict).Run(phys)
		if err != nil {
			log.Printf("stream %s: run: %v", reg.Name, err)
			return nil
		}
		return rowsToTriples(rows, reg.Select.Vars, s.dict)
	}

	mode := streamModeToR2S(reg.Mode)
	cq := &stream.ContinuousQuery{Window: win, Mode: mode, Eval: eval}
	s.streamsOn[reg.Name] = cq
	fmt.Printf("registered stream %s over window %s (width=%ds slide=%ds)\n", reg.Name, reg.WindowName, reg.Width, reg.Slide)
}

// runMetaCommand handles ":stream <name> add <ts> <s> <p> <o>" and
// ":stream <name> tick", the two out-of-band streaming events the
// SPARQL REGISTER grammar itself has no syntax for.
func runMetaCommand(s *session, text string) {
	fields := strings.Fields(text)
	if len(fields) < 3 || fields[0] != ":stream" {
		fmt.Println("error: expected :stream <name> add <ts> <s> <p> <o>  |  :stream <name> tick")
		return
	}
	name := fields[1]
	cq, ok := s.streamsOn[name]
	if !ok {
		fmt.Printf("error: no stream registered as %s\n", name)
		return
	}
	switch fields[2] {
	case "tick":
		for _, t := range cq.Evaluate() {
			fmt.Println(formatTriple(s.dict, t))
		}
	case "add":
		if len(fields) != 7 {
			fmt.Println("error: expected :stream <name> add <ts> <s> <p> <o>")
			return
		}
		var ts int64
		if _, err := fmt.Sscanf(fields[3], "%d", &ts); err != nil {
			fmt.Printf("error: invalid timestamp %q\n", fields[3])
			return
		}
		triple := model.Triple{S: s.dict.Encode(fields[4]), P: s.dict.Encode(fields[5]), O: s.dict.Encode(fields[6])}
		cq.Window.AddStream(triple, ts)
		fmt.Println("ok")
	default:
		fmt.Printf("error: unknown :stream subcommand %q\n", fields[2])
	}
}

func formatTriple(d *dict.Dictionary, t model.Triple) string {
	s, _ := d.Decode(t.S)
	p, _ := d.Decode(t.P)
	o, _ := d.Decode(t.O)
	return fmt.Sprintf("%s %s %s .", s, p, o)
}

func streamModeToR2S(m ast.StreamMode) stream.R2SMode {
	switch m {
	case ast.StreamI:
		return stream.ISTREAM
	case ast.StreamD:
		return stream.DSTREAM
	default:
		return stream.RSTREAM
	}
}

// rowsToTriples reinterprets a three-variable projection's result rows
// as triples (subject/predicate/object, in the SELECT clause's
// projection order), the shape a REGISTER query's
// `SELECT ?s ?p ?o WHERE { WINDOW :w {...} }` form produces for the
// stream's emitted facts. Re-encoding each lexical form through the
// session's dictionary is safe: dict.Encode dedups against existing
// entries, so this never produces a second id for an already-known
// term.
func rowsToTriples(rows []map[string]string, vars []string, d *dict.Dictionary) []model.Triple {
	if len(vars) != 3 {
		log.Printf("stream: projection has %d variables, want 3 (subject, predicate, object)", len(vars))
		return nil
	}
	out := make([]model.Triple, 0, len(rows))
	for _, row := range rows {
		sLex, sOk := row[vars[0]]
		pLex, pOk := row[vars[1]]
		oLex, oOk := row[vars[2]]
		if !sOk || !pOk || !oOk {
			continue
		}
		out = append(out, model.Triple{S: d.Encode(sLex), P: d.Encode(pLex), O: d.Encode(oLex)})
	}
	return out
}

func printRows(rows []map[string]string) {
	if len(rows) == 0 {
		fmt.Println("(no results)")
		return
	}
	var vars []string
	for v := range rows[0] {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	for _, row := range rows {
		parts := make([]string, 0, len(vars))
		for _, v := range vars {
			parts = append(parts, fmt.Sprintf("%s=%s", v, row[v]))
		}
		fmt.Println(strings.Join(parts, "  "))
	}
	fmt.Printf("(%d rows)\n", len(rows))
}
