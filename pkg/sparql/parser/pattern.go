package parser

import (
	"fmt"

	"github.com/corvusdb/corvus/pkg/sparql/ast"
)

// parseGraphPattern parses a `{ ... }` block: a conjunction of triple
// patterns, FILTER/BIND/VALUES clauses, and OPTIONAL/UNION/MINUS/nested-
// group children. Mirrors the teacher's parseGraphPattern structure
// (internal/sparql/parser/parser.go) — same "loop over clause keywords
// until '}'" shape, generalized to emit ast.GraphPattern's reduced
// Kind/Children sum type instead of the teacher's Type+Graph fields.
func (p *Parser) parseGraphPattern() (*ast.GraphPattern, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("sparql: expected '{' at position %d", p.pos)
	}
	p.advance()

	pattern := &ast.GraphPattern{Kind: ast.PatternBasic}
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}

		if p.matchKeyword("WINDOW") {
			p.skipWhitespace()
			p.expect(':')
			p.readWhile(isNameChar)
			inner, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			pattern.Triples = append(pattern.Triples, inner.Triples...)
			pattern.Filters = append(pattern.Filters, inner.Filters...)
			pattern.Binds = append(pattern.Binds, inner.Binds...)
			continue
		}

		if p.matchKeyword("FILTER") {
			expr, err := p.parseFilterClause()
			if err != nil {
				return nil, err
			}
			pattern.Filters = append(pattern.Filters, expr)
			continue
		}

		if p.matchKeyword("BIND") {
			bind, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			pattern.Binds = append(pattern.Binds, bind)
			continue
		}

		if p.matchKeyword("VALUES") {
			values, err := p.parseValues()
			if err != nil {
				return nil, err
			}
			pattern.Values = values
			continue
		}

		if p.matchKeyword("OPTIONAL") {
			child, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			child.Kind = ast.PatternOptional
			pattern.Children = append(pattern.Children, child)
			continue
		}

		if p.matchKeyword("MINUS") {
			child, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			child.Kind = ast.PatternMinus
			pattern.Children = append(pattern.Children, child)
			continue
		}

		if p.peek() == '{' {
			left, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			p.skipWhitespace()
			if p.matchKeyword("UNION") {
				right, err := p.parseGraphPattern()
				if err != nil {
					return nil, err
				}
				pattern.Children = append(pattern.Children, &ast.GraphPattern{
					Kind:     ast.PatternUnion,
					Children: []*ast.GraphPattern{left, right},
				})
			} else {
				pattern.Children = append(pattern.Children, left)
			}
			continue
		}

		triple, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		pattern.Triples = append(pattern.Triples, triple)
		pattern.Triples = append(pattern.Triples, p.drainPending()...)
		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}
	return pattern, nil
}

// parseTripleBlock parses a `{ ... }`-interior's worth of ground/pattern
// triples only (no FILTER/BIND/etc.), used by INSERT DATA and RULE
// CONSTRUCT templates. Caller has already consumed the opening '{'.
func (p *Parser) parseTripleBlock() ([]ast.TriplePattern, error) {
	var out []ast.TriplePattern
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			break
		}
		triple, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		out = append(out, triple)
		out = append(out, p.drainPending()...)
		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}
	return out, nil
}

// parseTriplePattern parses one `subject predicate object` triple,
// supporting the `;` predicate-object-list shorthand: it returns the
// first triple and consumes every following `;`-separated
// predicate-object pair itself, reusing the same subject and appending
// each extra triple to p.pending for the caller (parseGraphPattern/
// parseTripleBlock) to drain.
func (p *Parser) parseTriplePattern() (ast.TriplePattern, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return ast.TriplePattern{}, err
	}
	predicate, object, err := p.parsePredicateObject()
	if err != nil {
		return ast.TriplePattern{}, err
	}
	first := ast.TriplePattern{Subject: subject, Predicate: predicate, Object: object}

	// `;` shorthand: same subject, next predicate-object pair. Extra
	// triples are stashed on the parser and drained by the caller via
	// drainPending, since parseTriplePattern's signature returns one
	// triple but `;` can expand to several.
	for {
		p.skipWhitespace()
		if p.peek() != ';' {
			break
		}
		p.advance()
		p.skipWhitespace()
		if p.peek() == '.' || p.peek() == '}' {
			break
		}
		pred, obj, err := p.parsePredicateObject()
		if err != nil {
			return ast.TriplePattern{}, err
		}
		p.pending = append(p.pending, ast.TriplePattern{Subject: subject, Predicate: pred, Object: obj})
	}
	return first, nil
}

func (p *Parser) parsePredicateObject() (ast.Term, ast.Term, error) {
	predicate, err := p.parseTerm()
	if err != nil {
		return ast.Term{}, ast.Term{}, err
	}
	object, err := p.parseTerm()
	if err != nil {
		return ast.Term{}, ast.Term{}, err
	}
	return predicate, object, nil
}

// parseBind parses `BIND(Expr AS ?var)`; Bind.Variable is the bound variable,
// Bind.Expr the right-hand expression.
func (p *Parser) parseBind() (ast.Bind, error) {
	p.skipWhitespace()
	p.expect('(')
	p.skipWhitespace()
	expr, err := p.parseExpr()
	if err != nil {
		return ast.Bind{}, err
	}
	p.skipWhitespace()
	if !p.matchKeyword("AS") {
		return ast.Bind{}, fmt.Errorf("sparql: expected AS in BIND at position %d", p.pos)
	}
	p.skipWhitespace()
	v, err := p.parseVariableName()
	if err != nil {
		return ast.Bind{}, err
	}
	p.skipWhitespace()
	p.expect(')')
	return ast.Bind{Expr: expr, Variable: v}, nil
}

// parseValues parses `VALUES (?v1 ?v2) { (val val) (val UNDEF) ... }`.
func (p *Parser) parseValues() (*ast.ValuesBlock, error) {
	p.skipWhitespace()
	p.expect('(')
	var vars []string
	for {
		p.skipWhitespace()
		if p.peek() == ')' {
			p.advance()
			break
		}
		v, err := p.parseVariableName()
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	p.skipWhitespace()
	p.expect('{')
	var rows []map[string]string
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}
		p.expect('(')
		row := make(map[string]string, len(vars))
		for _, v := range vars {
			p.skipWhitespace()
			if p.matchKeyword("UNDEF") {
				continue
			}
			lex, err := p.parseLexicalTerm()
			if err != nil {
				return nil, err
			}
			row[v] = lex
		}
		p.skipWhitespace()
		p.expect(')')
		rows = append(rows, row)
	}
	return &ast.ValuesBlock{Vars: vars, Rows: rows}, nil
}
