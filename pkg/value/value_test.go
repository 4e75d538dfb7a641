package value

import "testing"

func TestParseIRI(t *testing.T) {
	v, err := Parse("<http://example.org/alice>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindIRI || v.Str != "http://example.org/alice" {
		t.Fatalf("got %+v", v)
	}
	if v.Lexical() != "<http://example.org/alice>" {
		t.Fatalf("round trip failed: %q", v.Lexical())
	}
}

func TestParseBlank(t *testing.T) {
	v, err := Parse("_:b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindBlank || v.Str != "b1" {
		t.Fatalf("got %+v", v)
	}
}

func TestParsePlainString(t *testing.T) {
	v, err := Parse(`"hello"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindString || v.Str != "hello" || v.Lang != "" {
		t.Fatalf("got %+v", v)
	}
}

func TestParseLangString(t *testing.T) {
	v, err := Parse(`"bonjour"@fr`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindString || v.Str != "bonjour" || v.Lang != "fr" {
		t.Fatalf("got %+v", v)
	}
	if v.Lexical() != `"bonjour"@fr` {
		t.Fatalf("round trip failed: %q", v.Lexical())
	}
}

func TestParseTypedInteger(t *testing.T) {
	v, err := Parse(Integer(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindInteger || v.Int != 42 {
		t.Fatalf("got %+v", v)
	}
	if v.Lexical() != Integer(42) {
		t.Fatalf("round trip failed: %q vs %q", v.Lexical(), Integer(42))
	}
}

func TestParseTypedDoubleWholeNumber(t *testing.T) {
	lex := Double(3.0)
	if lex != `"3.0"^^<http://www.w3.org/2001/XMLSchema#double>` {
		t.Fatalf("unexpected lexical form for whole double: %q", lex)
	}
	v, err := Parse(lex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindDouble || v.Float != 3.0 {
		t.Fatalf("got %+v", v)
	}
}

func TestParseTypedBoolean(t *testing.T) {
	v, err := Parse(Boolean(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindBoolean || !v.Bool {
		t.Fatalf("got %+v", v)
	}
}

func TestParseMalformedLiteral(t *testing.T) {
	if _, err := Parse(`"unterminated`); err == nil {
		t.Fatalf("expected error for unterminated literal")
	}
}

func TestParseInvalidTypedInteger(t *testing.T) {
	_, err := Parse(`"not-a-number"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	if err == nil {
		t.Fatalf("expected error for malformed integer literal")
	}
}

func TestEffectiveBoolean(t *testing.T) {
	cases := []struct {
		lex  string
		want bool
	}{
		{Boolean(true), true},
		{Boolean(false), false},
		{Integer(0), false},
		{Integer(7), true},
		{PlainString(""), false},
		{PlainString("x"), true},
	}
	for _, c := range cases {
		v, err := Parse(c.lex)
		if err != nil {
			t.Fatalf("parse(%q): %v", c.lex, err)
		}
		got, err := v.EffectiveBoolean()
		if err != nil {
			t.Fatalf("EffectiveBoolean(%q): %v", c.lex, err)
		}
		if got != c.want {
			t.Fatalf("EffectiveBoolean(%q) = %v, want %v", c.lex, got, c.want)
		}
	}
}

func TestEffectiveBooleanErrorsOnIRI(t *testing.T) {
	v, _ := Parse("<http://example.org/x>")
	if _, err := v.EffectiveBoolean(); err == nil {
		t.Fatalf("expected error computing effective boolean of an IRI")
	}
}

func TestCompareNumeric(t *testing.T) {
	a, _ := Parse(Integer(1))
	b, _ := Parse(Double(2.5))
	if Compare(a, b) >= 0 {
		t.Fatalf("expected 1 < 2.5")
	}
	if Compare(b, a) <= 0 {
		t.Fatalf("expected 2.5 > 1")
	}
	if Compare(a, a) != 0 {
		t.Fatalf("expected equal values to compare 0")
	}
}

func TestCompareFallsBackToLexical(t *testing.T) {
	a, _ := Parse(`"apple"`)
	b, _ := Parse(`"banana"`)
	if Compare(a, b) >= 0 {
		t.Fatalf("expected apple < banana lexically")
	}
}

func TestEqual(t *testing.T) {
	a, _ := Parse(Integer(5))
	b, _ := Parse(Integer(5))
	c, _ := Parse(Integer(6))
	if !Equal(a, b) {
		t.Fatalf("expected equal values")
	}
	if Equal(a, c) {
		t.Fatalf("expected unequal values")
	}
}

func TestIsNumeric(t *testing.T) {
	n, _ := Parse(Integer(1))
	s, _ := Parse(PlainString("x"))
	if !n.IsNumeric() {
		t.Fatalf("integer should be numeric")
	}
	if s.IsNumeric() {
		t.Fatalf("string should not be numeric")
	}
}
