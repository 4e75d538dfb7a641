package parser

import (
	"fmt"
	"strings"

	"github.com/corvusdb/corvus/pkg/sparql/ast"
)

// parseVariableName parses `?name`, returning "name" without the sigil
// (matching pkg/model's Term.Var convention).
func (p *Parser) parseVariableName() (string, error) {
	p.skipWhitespace()
	if p.peek() != '?' {
		return "", fmt.Errorf("sparql: expected variable at position %d", p.pos)
	}
	p.advance()
	name := p.readWhile(isNameChar)
	if name == "" {
		return "", fmt.Errorf("sparql: empty variable name at position %d", p.pos)
	}
	return name, nil
}

// parseIRILiteral parses `<...iri...>` and returns the bare IRI text
// (without angle brackets).
func (p *Parser) parseIRILiteral() string {
	if p.peek() != '<' {
		return ""
	}
	p.advance()
	iri := p.readWhile(func(b byte) bool { return b != '>' })
	p.expect('>')
	return iri
}

// parseIRIOrPrefixed parses either `<iri>`, a prefixed name
// `prefix:local` (resolved against p.prefixes), or a bare name used
// directly as an IRI-like token (this grammar's facts name terms like
// `peter`/`worksAt`/`kulak` without angle brackets or a namespace
// prefix), returning the bare IRI text in all three cases.
func (p *Parser) parseIRIOrPrefixed() string {
	p.skipWhitespace()
	if p.peek() == '<' {
		return p.parseIRILiteral()
	}
	iri, _ := p.parsePrefixedName()
	return iri
}

// parsePrefixedName parses `prefix:local` or a bare name with no colon,
// resolving a prefix against p.prefixes when one is present, and
// returning the expanded (or bare) IRI text.
func (p *Parser) parsePrefixedName() (string, error) {
	word := p.readWhile(isNameChar)
	if word == "" {
		return "", fmt.Errorf("sparql: expected a name at position %d", p.pos)
	}
	if p.peek() != ':' {
		return word, nil
	}
	p.advance()
	local := p.readWhile(isNameChar)
	base, ok := p.prefixes[word]
	if !ok {
		return word + ":" + local, nil
	}
	return base + local, nil
}

// parseTerm parses one subject/predicate/object position: a variable,
// an IRI, a prefixed name, a string literal (optionally @lang or
// ^^<datatype>), a blank node, or a bare numeric/boolean literal.
func (p *Parser) parseTerm() (ast.Term, error) {
	p.skipWhitespace()
	if p.peek() == '?' {
		v, err := p.parseVariableName()
		if err != nil {
			return ast.Term{}, err
		}
		return ast.Term{Var: v}, nil
	}
	lex, err := p.parseLexicalTerm()
	if err != nil {
		return ast.Term{}, err
	}
	return ast.Term{Lexical: lex}, nil
}

// parseLexicalTerm parses a non-variable term and returns its
// dictionary-ready lexical form (`<iri>`, `"v"`, `"v"@lang`,
// `"v"^^<dt>`, `_:b`, or a bare numeric/boolean token).
func (p *Parser) parseLexicalTerm() (string, error) {
	p.skipWhitespace()
	switch {
	case p.peek() == '<':
		return "<" + p.parseIRILiteral() + ">", nil

	case p.peek() == '_' && p.peekAt(1) == ':':
		p.advance()
		p.advance()
		label := p.readWhile(isNameChar)
		return "_:" + label, nil

	case p.peek() == '"':
		p.advance()
		var sb strings.Builder
		for p.pos < p.length && p.input[p.pos] != '"' {
			if p.input[p.pos] == '\\' && p.pos+1 < p.length {
				sb.WriteByte(p.input[p.pos+1])
				p.pos += 2
				continue
			}
			sb.WriteByte(p.input[p.pos])
			p.pos++
		}
		p.expect('"')
		raw := sb.String()
		switch {
		case p.peek() == '@':
			p.advance()
			lang := p.readWhile(func(b byte) bool { return b != ' ' && b != '\t' && b != '\n' && b != '.' && b != '}' && b != ')' })
			return "\"" + raw + "\"@" + lang, nil
		case p.peek() == '^' && p.peekAt(1) == '^':
			p.advance()
			p.advance()
			dt := p.parseIRIOrPrefixed()
			return "\"" + raw + "\"^^<" + dt + ">", nil
		default:
			return "\"" + raw + "\"", nil
		}

	case p.peek() == ':':
		p.advance()
		local := p.readWhile(isNameChar)
		if base, ok := p.prefixes[""]; ok {
			return "<" + base + local + ">", nil
		}
		return "<" + local + ">", nil

	case isDigitStart(p.peek()):
		return p.readWhile(func(b byte) bool {
			return (b >= '0' && b <= '9') || b == '.' || b == '-' || b == '+' || b == 'e' || b == 'E'
		}), nil

	case p.matchKeyword("true"):
		return "true", nil
	case p.matchKeyword("false"):
		return "false", nil

	default:
		iri, err := p.parsePrefixedName()
		if err != nil {
			return "", fmt.Errorf("sparql: expected a term at position %d", p.pos)
		}
		return "<" + iri + ">", nil
	}
}

func isDigitStart(b byte) bool {
	return (b >= '0' && b <= '9') || b == '-' || b == '+'
}
