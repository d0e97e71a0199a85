package service

import "fmt"

// The service layer raises exactly three kinds of domain errors. They
// propagate unmodified to the caller; no local recovery or retry happens
// here. Serialization failures come from the events package.

// NotFoundError means a referenced entity id did not resolve.
type NotFoundError struct {
	Msg string
}

func (e NotFoundError) Error() string { return e.Msg }

func notFound(format string, args ...any) NotFoundError {
	return NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError means a uniqueness rule was violated.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string { return e.Msg }

func conflict(format string, args ...any) ConflictError {
	return ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidOperationError means the request itself is structurally unsound,
// such as self-parenting a task.
type InvalidOperationError struct {
	Msg string
}

func (e InvalidOperationError) Error() string { return e.Msg }

func invalidOp(format string, args ...any) InvalidOperationError {
	return InvalidOperationError{Msg: fmt.Sprintf(format, args...)}
}
