package parser

import (
	"fmt"

	"github.com/corvusdb/corvus/pkg/model"
)

// parseFilterClause parses `FILTER(Expr)` or the bare `FILTER Expr` form,
// returning the parsed expression tree.
func (p *Parser) parseFilterClause() (*model.Expr, error) {
	p.skipWhitespace()
	paren := false
	if p.peek() == '(' {
		paren = true
		p.advance()
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if paren {
		p.skipWhitespace()
		p.expect(')')
	}
	return expr, nil
}

// parseExpr parses a full expression via precedence climbing: OR binds
// loosest, then AND, then comparisons, then +/-, then * //, then unary
// NOT/-, then primary — mirroring the teacher's parseOrExpression/
// parseAndExpression/... chain (internal/sparql/parser/parser.go).
func (p *Parser) parseExpr() (*model.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (*model.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.matchOperator("||") {
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = model.Bin(model.OpOr, left, right)
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseAnd() (*model.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.matchOperator("&&") {
			right, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			left = model.Bin(model.OpAnd, left, right)
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseComparison() (*model.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	var op model.Operator
	switch {
	case p.matchOperator("=="):
		op = model.OpEqual
	case p.matchOperator("="):
		op = model.OpEqual
	case p.matchOperator("!="):
		op = model.OpNotEqual
	case p.matchOperator("<="):
		op = model.OpLessEqual
	case p.matchOperator(">="):
		op = model.OpGreaterEqual
	case p.matchOperator("<"):
		op = model.OpLess
	case p.matchOperator(">"):
		op = model.OpGreater
	default:
		return left, nil
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return model.Bin(op, left, right), nil
}

func (p *Parser) parseAdditive() (*model.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		var op model.Operator
		switch {
		case p.matchOperator("+"):
			op = model.OpAdd
		case p.matchOperator("-"):
			op = model.OpSubtract
		default:
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = model.Bin(op, left, right)
	}
}

func (p *Parser) parseMultiplicative() (*model.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		var op model.Operator
		switch {
		case p.matchOperator("*"):
			op = model.OpMultiply
		case p.matchOperator("/"):
			op = model.OpDivide
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = model.Bin(op, left, right)
	}
}

func (p *Parser) parseUnary() (*model.Expr, error) {
	p.skipWhitespace()
	if p.matchOperator("!") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return model.Un(model.OpNot, operand), nil
	}
	if p.matchKeyword("NOT") {
		p.skipWhitespace()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return model.Un(model.OpNot, operand), nil
	}
	return p.parsePrimary()
}

// parsePrimary parses a parenthesized expression, a built-in function
// call (BOUND/LANG/DATATYPE/REGEX), a variable reference, or a literal.
func (p *Parser) parsePrimary() (*model.Expr, error) {
	p.skipWhitespace()
	if p.peek() == '(' {
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		p.expect(')')
		return expr, nil
	}

	for _, fn := range []struct {
		name string
		op   model.Operator
	}{
		{"BOUND", model.OpBound},
		{"LANG", model.OpLang},
		{"DATATYPE", model.OpDatatype},
	} {
		if p.matchKeyword(fn.name) {
			p.skipWhitespace()
			p.expect('(')
			p.skipWhitespace()
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipWhitespace()
			p.expect(')')
			return model.Un(fn.op, arg), nil
		}
	}

	if p.matchKeyword("REGEX") {
		p.skipWhitespace()
		p.expect('(')
		p.skipWhitespace()
		subject, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		p.expect(',')
		p.skipWhitespace()
		pattern, err := p.parseLexicalTerm()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		p.expect(')')
		return &model.Expr{Op: model.OpRegex, Left: subject, Literal: pattern}, nil
	}

	if p.peek() == '?' {
		v, err := p.parseVariableName()
		if err != nil {
			return nil, err
		}
		return model.Var(v), nil
	}

	lex, err := p.parseLexicalTerm()
	if err != nil {
		return nil, fmt.Errorf("sparql: expected expression at position %d", p.pos)
	}
	return model.Lit(lex), nil
}
