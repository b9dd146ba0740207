package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/kitten/types"
)

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// PosError is a user-facing error attached to a source offset.
type PosError interface {
	error
	Offset() int
}

// SyntaxError is reported by the parser.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string { return e.Msg }
func (e *SyntaxError) Offset() int   { return e.Pos }

// SemanticError covers type errors that have no dedicated type, such as
// undefined names.
type SemanticError struct {
	Pos int
	Msg string
}

func (e *SemanticError) Error() string { return e.Msg }
func (e *SemanticError) Offset() int   { return e.Pos }

// ContextError is reported when a construct appears where it is not allowed,
// such as an assert outside a test body.
type ContextError struct {
	Pos       int
	Construct string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s not allowed here", e.Construct)
}
func (e *ContextError) Offset() int { return e.Pos }

// MissingConditionError is reported for an assert without a condition.
type MissingConditionError struct {
	Pos int
}

func (e *MissingConditionError) Error() string {
	return "assert: boolean expression expected"
}
func (e *MissingConditionError) Offset() int { return e.Pos }

// TypeMismatchError is reported when an expression has the wrong static type.
type TypeMismatchError struct {
	Pos      int
	Context  string
	Expected types.Type
	Found    types.Type
}

func (e *TypeMismatchError) Error() string {
	found := "nil"
	if e.Found != nil {
		found = e.Found.String()
	}
	return fmt.Sprintf("%s: %s expected, found %s", e.Context, e.Expected, found)
}
func (e *TypeMismatchError) Offset() int { return e.Pos }

// DuplicateTestError is reported when a class declares two tests with the
// same name.
type DuplicateTestError struct {
	Pos   int
	Class string
	Name  string
}

func (e *DuplicateTestError) Error() string {
	return fmt.Sprintf("duplicate test %q in class %s", e.Name, e.Class)
}
func (e *DuplicateTestError) Offset() int { return e.Pos }

// DeadCodeError is reported for a command that can never run.
type DeadCodeError struct {
	Pos int
}

func (e *DeadCodeError) Error() string { return "dead code" }
func (e *DeadCodeError) Offset() int   { return e.Pos }

// ErrorList collects the diagnostics of one source file.
type ErrorList struct {
	Source *types.Source
	Errors []error
}

// NewErrorList creates an empty list for src.
func NewErrorList(src *types.Source) *ErrorList {
	return &ErrorList{Source: src}
}

// Add records err.
func (l *ErrorList) Add(err error) {
	l.Errors = append(l.Errors, err)
}

// Len returns the number of recorded errors.
func (l *ErrorList) Len() int {
	return len(l.Errors)
}

// Err returns the list as an error, or nil when it is empty.
func (l *ErrorList) Err() error {
	if len(l.Errors) == 0 {
		return nil
	}
	return l
}

// Format renders one error as "<file>:<line>.<col>: <msg>".
func (l *ErrorList) Format(err error) string {
	path := "<input>"
	if l.Source != nil && l.Source.Path != "" {
		path = l.Source.Path
	}
	if pe, ok := err.(PosError); ok && l.Source != nil && pe.Offset() >= 0 {
		return fmt.Sprintf("%s:%s: %s", path, l.Source.Position(pe.Offset()), err)
	}
	return fmt.Sprintf("%s: %s", path, err)
}

func (l *ErrorList) Error() string {
	lines := make([]string, len(l.Errors))
	for i, err := range l.Errors {
		lines[i] = l.Format(err)
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (l *ErrorList) Unwrap() []error {
	return l.Errors
}
