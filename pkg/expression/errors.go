package expression

import "fmt"

// SyntaxError reports malformed expression source, with the byte offset of
// the first offending character.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expression: %s (offset %d)", e.Message, e.Offset)
}

func syntaxErrorf(offset int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// UnknownFunctionError reports a call to a function name that is neither
// built in nor registered. Unlike missing sigil references, which evaluate
// to undefined, this indicates a bug in the expression and fails fast.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("expression: no function named %q is registered", e.Name)
}

// EvalError reports a well-formed expression that could not be evaluated
// against the given context, e.g. a method call on an undefined value. The
// message names the offending piece so an author can fix the expression
// without a stack trace.
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string {
	return "expression: " + e.Message
}

func evalErrorf(format string, args ...any) *EvalError {
	return &EvalError{Message: fmt.Sprintf(format, args...)}
}
