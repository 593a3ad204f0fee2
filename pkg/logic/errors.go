package logic

import (
	"errors"
	"fmt"

	"github.com/vito/hilbert/pkg/token"
)

// DataError reports inconsistent data: duplicate definitions, unresolved
// references, and kind, arity or DV mismatches. It is fatal to the command
// that caused it but not to the process.
type DataError struct {
	Op   string // e.g. "define kind", "import", "export"
	Name string // offending name or locator
	Msg  string
	Err  error
}

// NewDataError creates a DataError.
func NewDataError(op, name, msg string) *DataError {
	return &DataError{Op: op, Name: name, Msg: msg}
}

// WrapDataError creates a DataError caused by err.
func WrapDataError(err error, op, name, msg string) *DataError {
	return &DataError{Op: op, Name: name, Msg: msg, Err: err}
}

func (e *DataError) Error() string {
	msg := e.Msg
	if e.Name != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Name)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// IsDataError reports whether err is or wraps a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// KindMismatchError is returned when an expression's kind differs from the
// kind required at its position.
type KindMismatchError struct {
	Term     string
	Position int // 1-based
	Expected string
	Found    string
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("kind mismatch in argument %d of %s: expected %s, found %s",
		e.Position, e.Term, e.Expected, e.Found)
}

// ExpressionError reports malformed expression input.
type ExpressionError struct {
	Pos token.Pos
	Msg string
	Err error
}

func (e *ExpressionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// MismatchError is returned by equality checks when two expressions differ
// structurally.
type MismatchError struct {
	Left, Right *Expression
	Reason      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expressions differ (%s): %s vs %s", e.Reason, e.Left, e.Right)
}
