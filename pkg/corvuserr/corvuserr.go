// Package corvuserr defines the error-kind taxonomy SPEC_FULL.md §8
// names, so callers across the parser, planner, executor, and
// reasoner can classify a failure without string-matching its message.
//
// Grounded on the teacher's own error style (internal/testsuite,
// internal/rdfio: plain fmt.Errorf with %w wrapping, no dedicated
// error-kind type) — this package adds only the thin Kind/Error
// wrapper the spec requires on top of that same wrapping idiom, rather
// than inventing a parallel error hierarchy.
package corvuserr

import "fmt"

// Kind classifies a corvus error, per spec.md §7.
type Kind int

const (
	Internal Kind = iota
	ParseError
	TypeMismatch
	UnknownVariable
	UnknownFunction
	DictionaryMissing
	IoError
	Timeout
	Cancelled
	ConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case TypeMismatch:
		return "TypeMismatch"
	case UnknownVariable:
		return "UnknownVariable"
	case UnknownFunction:
		return "UnknownFunction"
	case DictionaryMissing:
		return "DictionaryMissing"
	case IoError:
		return "IoError"
	case Timeout:
		return "Timeout"
	case Cancelled:
		return "Cancelled"
	case ConstraintViolation:
		return "ConstraintViolation"
	default:
		return "Internal"
	}
}

// Error wraps an underlying error with a Kind, so callers can recover
// it via errors.As without parsing the message.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind. A nil err is returned as nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Newf builds a new Error directly from a format string, in the
// teacher's fmt.Errorf idiom.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}
