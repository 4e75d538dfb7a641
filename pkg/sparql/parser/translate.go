package parser

import (
	"fmt"

	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/plan"
	"github.com/corvusdb/corvus/pkg/sparql/ast"
)

// Translate converts a parsed SelectQuery into a plan.Logical tree,
// resolving every lexical term against d. Grounded on the teacher's
// optimizer.optimizeSelect/optimizeGraphPattern (internal/sparql/
// optimizer/optimizer.go) — same "fold graph pattern into a left-deep
// join tree, then wrap with GroupBy/Projection/OrderBy/Limit/Offset"
// shape — generalized to emit this module's split plan.Logical family
// instead of the teacher's single QueryPlan sum type. Join reordering
// and filter pushdown are NOT done here: pkg/optimizer.Optimize does
// that once this function hands it a naive left-deep tree.
func Translate(q *ast.SelectQuery, d *dict.Dictionary) (plan.Logical, error) {
	var node plan.Logical
	if q.Where != nil {
		built, err := translateGraphPattern(q.Where, d)
		if err != nil {
			return nil, err
		}
		node = built
	} else {
		node = plan.Values{}
	}

	if len(q.GroupVars) > 0 || len(q.Aggregates) > 0 {
		aggs, err := translateAggregates(q.Aggregates)
		if err != nil {
			return nil, err
		}
		node = plan.GroupBy{Input: node, GroupVars: q.GroupVars, Aggregates: aggs}
	}

	vars := q.Vars
	if len(vars) == 0 {
		for _, agg := range q.Aggregates {
			vars = append(vars, agg.OutVar)
		}
	}
	if len(vars) > 0 {
		node = plan.Projection{Input: node, Vars: vars, Distinct: q.Distinct}
	}

	if len(q.OrderBy) > 0 {
		var keys []plan.OrderKey
		for _, k := range q.OrderBy {
			keys = append(keys, plan.OrderKey{Variable: k.Variable, Descending: k.Descending})
		}
		node = plan.OrderBy{Input: node, Keys: keys}
	}
	if q.Offset != nil {
		node = plan.Offset{Input: node, N: *q.Offset}
	}
	if q.Limit != nil {
		node = plan.Limit{Input: node, N: *q.Limit}
	}
	return node, nil
}

func translateAggregates(aggs []ast.Aggregate) ([]plan.Aggregate, error) {
	out := make([]plan.Aggregate, 0, len(aggs))
	for _, a := range aggs {
		fn, err := translateAggFunc(a.FuncName)
		if err != nil {
			return nil, err
		}
		out = append(out, plan.Aggregate{Func: fn, Variable: a.Variable, OutVar: a.OutVar})
	}
	return out, nil
}

func translateAggFunc(name string) (plan.AggregateFunc, error) {
	switch name {
	case "SUM":
		return plan.AggSum, nil
	case "AVG":
		return plan.AggAvg, nil
	case "COUNT":
		return plan.AggCount, nil
	case "MIN":
		return plan.AggMin, nil
	case "MAX":
		return plan.AggMax, nil
	default:
		return 0, fmt.Errorf("sparql: unknown aggregate function %q", name)
	}
}

// translateGraphPattern folds a basic graph pattern's triples into a
// left-deep plan.Join chain, wraps it with Selection for any FILTERs and
// PhysicalBind-equivalent plan.Bind for any BINDs and plan.Values for
// VALUES, and combines Optional/Union/Minus children via plan.Join.
func translateGraphPattern(gp *ast.GraphPattern, d *dict.Dictionary) (plan.Logical, error) {
	var node plan.Logical
	for _, tp := range gp.Triples {
		pattern, err := translateTriplePattern(tp, d)
		if err != nil {
			return nil, err
		}
		scan := plan.Scan{Pattern: pattern}
		if node == nil {
			node = scan
		} else {
			node = plan.Join{Left: node, Right: scan, Kind: plan.JoinInner}
		}
	}

	if gp.Values != nil {
		values, err := translateValues(gp.Values, d)
		if err != nil {
			return nil, err
		}
		if node == nil {
			node = values
		} else {
			node = plan.Join{Left: node, Right: values, Kind: plan.JoinInner}
		}
	}

	if node == nil {
		node = plan.Values{}
	}

	for _, bind := range gp.Binds {
		node = plan.Bind{Input: node, FuncName: "IDENTITY", Args: []*model.Expr{bind.Expr}, OutVar: bind.Variable}
	}

	for _, f := range gp.Filters {
		node = plan.Selection{Input: node, Condition: f}
	}

	for _, child := range gp.Children {
		childNode, err := translateGraphPattern(child, d)
		if err != nil {
			return nil, err
		}
		var kind plan.JoinKind
		switch child.Kind {
		case ast.PatternOptional:
			kind = plan.JoinOptional
		case ast.PatternMinus:
			kind = plan.JoinMinus
		case ast.PatternUnion:
			if len(child.Children) != 2 {
				return nil, fmt.Errorf("sparql: UNION requires exactly two arms")
			}
			left, err := translateGraphPattern(child.Children[0], d)
			if err != nil {
				return nil, err
			}
			right, err := translateGraphPattern(child.Children[1], d)
			if err != nil {
				return nil, err
			}
			union := plan.Join{Left: left, Right: right, Kind: plan.JoinUnion}
			node = plan.Join{Left: node, Right: union, Kind: plan.JoinInner}
			continue
		default:
			kind = plan.JoinInner
		}
		node = plan.Join{Left: node, Right: childNode, Kind: kind}
	}

	return node, nil
}

func translateValues(v *ast.ValuesBlock, d *dict.Dictionary) (plan.Values, error) {
	rows := make([]map[string]*model.ID, 0, len(v.Rows))
	for _, row := range v.Rows {
		r := make(map[string]*model.ID, len(v.Vars))
		for _, name := range v.Vars {
			lex, ok := row[name]
			if !ok {
				continue
			}
			id := d.Encode(lex)
			r[name] = &id
		}
		rows = append(rows, r)
	}
	return plan.Values{Vars: v.Vars, Rows: rows}, nil
}

// translateTriplePattern resolves one ast.TriplePattern's terms against
// d, encoding bound lexical forms into dictionary ids.
func translateTriplePattern(tp ast.TriplePattern, d *dict.Dictionary) (model.Pattern, error) {
	s, err := translateTerm(tp.Subject, d)
	if err != nil {
		return model.Pattern{}, err
	}
	p, err := translateTerm(tp.Predicate, d)
	if err != nil {
		return model.Pattern{}, err
	}
	o, err := translateTerm(tp.Object, d)
	if err != nil {
		return model.Pattern{}, err
	}
	return model.Pattern{Subject: s, Predicate: p, Object: o}, nil
}

func translateTerm(t ast.Term, d *dict.Dictionary) (model.Term, error) {
	if t.IsVariable() {
		return model.Variable(t.Var), nil
	}
	if t.Lexical == "" {
		return model.Term{}, fmt.Errorf("sparql: empty term")
	}
	return model.Bound(d.Encode(t.Lexical)), nil
}

// TranslateRule converts a parsed RuleDef into a model.Rule, resolving
// every premise/conclusion term against d. Filters attached to the
// rule's WHERE clause become model.Filter entries (grounded on
// pkg/reason's Rule.Filters field, per SPEC_FULL.md's RULE extension).
func TranslateRule(r *ast.RuleDef, d *dict.Dictionary) (model.Rule, error) {
	premises := make([]model.Pattern, 0, len(r.Where.Triples))
	for _, tp := range r.Where.Triples {
		pattern, err := translateTriplePattern(tp, d)
		if err != nil {
			return model.Rule{}, err
		}
		premises = append(premises, pattern)
	}
	conclusions := make([]model.Pattern, 0, len(r.Conclusions))
	for _, tp := range r.Conclusions {
		pattern, err := translateTriplePattern(tp, d)
		if err != nil {
			return model.Rule{}, err
		}
		conclusions = append(conclusions, pattern)
	}
	var filters []model.Filter
	for _, f := range r.Where.Filters {
		filters = append(filters, model.Filter{Condition: f})
	}
	return model.Rule{Name: r.Name, Premises: premises, Conclusions: conclusions, Filters: filters}, nil
}
