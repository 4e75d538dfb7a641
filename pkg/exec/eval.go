package exec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/corvusdb/corvus/pkg/corvuserr"
	"github.com/corvusdb/corvus/pkg/dict"
	"github.com/corvusdb/corvus/pkg/model"
	"github.com/corvusdb/corvus/pkg/value"
)

// Evaluator resolves model.Expr condition trees against a binding,
// decoding dictionary ids into typed values as needed.
//
// Grounded on the teacher's evaluator.Evaluate/evaluateBinaryExpression
// dispatch (pkg/sparql/evaluator/evaluator.go, operators.go), adapted
// from operating on rdf.Term objects to operating on decoded value.Value
// lexical forms, since this system's rows carry ids, not terms.
type Evaluator struct {
	Dict *dict.Dictionary
}

// Eval evaluates e against binding b, returning a typed value.
func (ev *Evaluator) Eval(e *model.Expr, b model.Binding) (value.Value, error) {
	if e == nil {
		return value.Value{}, fmt.Errorf("exec: nil expression")
	}
	if e.IsLeaf {
		return ev.evalLeaf(e, b)
	}
	switch e.Op {
	case model.OpAnd:
		return ev.evalAnd(e, b)
	case model.OpOr:
		return ev.evalOr(e, b)
	case model.OpNot:
		return ev.evalNot(e, b)
	case model.OpEqual, model.OpNotEqual:
		return ev.evalEquality(e, b)
	case model.OpLess, model.OpLessEqual, model.OpGreater, model.OpGreaterEqual:
		return ev.evalOrdering(e, b)
	case model.OpAdd, model.OpSubtract, model.OpMultiply, model.OpDivide:
		return ev.evalArithmetic(e, b)
	case model.OpRegex:
		return ev.evalRegex(e, b)
	case model.OpLang:
		return ev.evalLang(e, b)
	case model.OpDatatype:
		return ev.evalDatatype(e, b)
	case model.OpBound:
		return ev.evalBound(e, b)
	default:
		return value.Value{}, fmt.Errorf("exec: unsupported operator %v", e.Op)
	}
}

func (ev *Evaluator) evalLeaf(e *model.Expr, b model.Binding) (value.Value, error) {
	if e.Variable != "" {
		id, ok := b[e.Variable]
		if !ok {
			return value.Value{}, corvuserr.Newf(corvuserr.UnknownVariable, "exec: unbound variable ?%s", e.Variable)
		}
		lex, ok := ev.Dict.Decode(id)
		if !ok {
			return value.Value{}, corvuserr.Newf(corvuserr.DictionaryMissing, "exec: dictionary missing id for ?%s", e.Variable)
		}
		return value.Parse(lex)
	}
	return value.Parse(e.Literal)
}

// EBV computes the effective boolean value of e, used by Selection.
func (ev *Evaluator) EBV(e *model.Expr, b model.Binding) (bool, error) {
	v, err := ev.Eval(e, b)
	if err != nil {
		return false, err
	}
	return v.EffectiveBoolean()
}

func (ev *Evaluator) evalAnd(e *model.Expr, b model.Binding) (value.Value, error) {
	left, lerr := ev.EBV(e.Left, b)
	if lerr == nil && !left {
		return value.Value{Kind: value.KindBoolean, Bool: false}, nil
	}
	right, rerr := ev.EBV(e.Right, b)
	if lerr != nil {
		return value.Value{}, lerr
	}
	if rerr != nil {
		return value.Value{}, rerr
	}
	return value.Value{Kind: value.KindBoolean, Bool: left && right}, nil
}

func (ev *Evaluator) evalOr(e *model.Expr, b model.Binding) (value.Value, error) {
	left, lerr := ev.EBV(e.Left, b)
	if lerr == nil && left {
		return value.Value{Kind: value.KindBoolean, Bool: true}, nil
	}
	right, rerr := ev.EBV(e.Right, b)
	if rerr == nil && right {
		return value.Value{Kind: value.KindBoolean, Bool: true}, nil
	}
	if lerr != nil {
		return value.Value{}, lerr
	}
	if rerr != nil {
		return value.Value{}, rerr
	}
	return value.Value{Kind: value.KindBoolean, Bool: false}, nil
}

func (ev *Evaluator) evalNot(e *model.Expr, b model.Binding) (value.Value, error) {
	operand, err := ev.EBV(e.Left, b)
	if err != nil {
		return value.Value{}, err
	}
	return value.Value{Kind: value.KindBoolean, Bool: !operand}, nil
}

func (ev *Evaluator) evalEquality(e *model.Expr, b model.Binding) (value.Value, error) {
	left, err := ev.Eval(e.Left, b)
	if err != nil {
		return value.Value{}, err
	}
	right, err := ev.Eval(e.Right, b)
	if err != nil {
		return value.Value{}, err
	}
	eq := value.Equal(left, right)
	if e.Op == model.OpNotEqual {
		eq = !eq
	}
	return value.Value{Kind: value.KindBoolean, Bool: eq}, nil
}

func (ev *Evaluator) evalOrdering(e *model.Expr, b model.Binding) (value.Value, error) {
	left, err := ev.Eval(e.Left, b)
	if err != nil {
		return value.Value{}, err
	}
	right, err := ev.Eval(e.Right, b)
	if err != nil {
		return value.Value{}, err
	}
	cmp := value.Compare(left, right)
	var result bool
	switch e.Op {
	case model.OpLess:
		result = cmp < 0
	case model.OpLessEqual:
		result = cmp <= 0
	case model.OpGreater:
		result = cmp > 0
	case model.OpGreaterEqual:
		result = cmp >= 0
	}
	return value.Value{Kind: value.KindBoolean, Bool: result}, nil
}

func (ev *Evaluator) evalArithmetic(e *model.Expr, b model.Binding) (value.Value, error) {
	left, err := ev.Eval(e.Left, b)
	if err != nil {
		return value.Value{}, err
	}
	right, err := ev.Eval(e.Right, b)
	if err != nil {
		return value.Value{}, err
	}
	if !left.IsNumeric() || !right.IsNumeric() {
		return value.Value{}, fmt.Errorf("exec: arithmetic operator requires numeric operands")
	}
	var result float64
	switch e.Op {
	case model.OpAdd:
		result = left.Float + right.Float
	case model.OpSubtract:
		result = left.Float - right.Float
	case model.OpMultiply:
		result = left.Float * right.Float
	case model.OpDivide:
		if right.Float == 0 {
			return value.Value{}, fmt.Errorf("exec: division by zero")
		}
		result = left.Float / right.Float
	}
	if left.Kind == value.KindInteger && right.Kind == value.KindInteger && result == float64(int64(result)) {
		return value.Value{Kind: value.KindInteger, Int: int64(result), Float: result}, nil
	}
	return value.Value{Kind: value.KindDouble, Float: result}, nil
}

func (ev *Evaluator) evalRegex(e *model.Expr, b model.Binding) (value.Value, error) {
	left, err := ev.Eval(e.Left, b)
	if err != nil {
		return value.Value{}, err
	}
	re, err := regexp.Compile(e.Literal)
	if err != nil {
		return value.Value{}, fmt.Errorf("exec: invalid regex %q: %w", e.Literal, err)
	}
	return value.Value{Kind: value.KindBoolean, Bool: re.MatchString(left.Str)}, nil
}

func (ev *Evaluator) evalLang(e *model.Expr, b model.Binding) (value.Value, error) {
	left, err := ev.Eval(e.Left, b)
	if err != nil {
		return value.Value{}, err
	}
	return value.Value{Kind: value.KindString, Str: left.Lang}, nil
}

func (ev *Evaluator) evalDatatype(e *model.Expr, b model.Binding) (value.Value, error) {
	left, err := ev.Eval(e.Left, b)
	if err != nil {
		return value.Value{}, err
	}
	dt := left.Datatype
	if dt == "" {
		dt = value.XSDString
	}
	return value.Value{Kind: value.KindIRI, Str: dt}, nil
}

func (ev *Evaluator) evalBound(e *model.Expr, b model.Binding) (value.Value, error) {
	_, ok := b[e.Left.Variable]
	return value.Value{Kind: value.KindBoolean, Bool: ok}, nil
}

// CallFunction evaluates a Bind's registered function over its
// arguments, returning the lexical form to be interned and bound to the
// output variable.
func (ev *Evaluator) CallFunction(name string, args []*model.Expr, b model.Binding, table FunctionTable) (string, error) {
	fn, ok := table[strings.ToUpper(name)]
	if !ok {
		return "", corvuserr.Newf(corvuserr.UnknownFunction, "exec: unknown function %q", name)
	}
	vals := make([]value.Value, len(args))
	for i, a := range args {
		v, err := ev.Eval(a, b)
		if err != nil {
			return "", err
		}
		vals[i] = v
	}
	result, err := fn(vals)
	if err != nil {
		return "", err
	}
	return result.Lexical(), nil
}

// FunctionTable resolves BIND function names to implementations.
type FunctionTable map[string]func([]value.Value) (value.Value, error)

// DefaultFunctions returns a small built-in function table (arithmetic
// convenience functions beyond plain binary expressions), matching the
// teacher's "f is resolved from a registered function table" contract.
func DefaultFunctions() FunctionTable {
	return FunctionTable{
		"ABS": func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || !args[0].IsNumeric() {
				return value.Value{}, fmt.Errorf("exec: ABS expects one numeric argument")
			}
			f := args[0].Float
			if f < 0 {
				f = -f
			}
			return value.Value{Kind: value.KindDouble, Float: f}, nil
		},
		// IDENTITY backs the plain `BIND(Expr AS ?var)` form, which names
		// no function — the parser routes it through CallFunction with a
		// single already-evaluated argument that should pass through
		// unchanged.
		"IDENTITY": func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return value.Value{}, fmt.Errorf("exec: IDENTITY expects exactly one argument")
			}
			return args[0], nil
		},
	}
}
