package bdd

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the error taxonomy a public Manager call can fail with.
// Public entry points validate their handle, VarSet, and VarMap arguments
// before any side effect. Two errors can still arise during a recursive
// descent, after nodes have been allocated: InvalidArgument from Replace
// when a target level already occurs in the function being rebuilt, and
// ResourceExhausted when the pool cannot grow.
type Kind int

const (
	// ManagerMismatch is raised when a Handle, VarSet, or VarMap created by
	// one Manager is passed to a different Manager.
	ManagerMismatch Kind = iota
	// InvalidArgument covers malformed construction parameters, duplicate
	// variables in a VarSet, mismatched variable types in a VarMap, and the
	// bitvector-layer argument errors (shift out of range, size mismatch)
	// that surface through the core's Apply-based operators.
	InvalidArgument
	// ResourceExhausted is raised when growing the pool would exceed the
	// maximum number of variables the underlying variant can address.
	ResourceExhausted
	// LookupMiss is raised when a satisfying assignment is queried for a
	// variable absent from the recorded assignment.
	LookupMiss
)

func (k Kind) String() string {
	switch k {
	case ManagerMismatch:
		return "manager mismatch"
	case InvalidArgument:
		return "invalid argument"
	case ResourceExhausted:
		return "resource exhausted"
	case LookupMiss:
		return "lookup miss"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every public Manager method returns. It
// wraps a Kind with a stack trace via github.com/pkg/errors, so a failing
// precondition check carries its origin instead of just a flat message. A
// per-call error value, rather than a single mutable error field on the
// manager, is required once several managers are active in one process.
type Error struct {
	kind  Kind
	cause error
}

func (e *Error) Error() string {
	return e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Kind reports which entry of the error taxonomy e belongs to.
func (e *Error) Kind() Kind {
	return e.kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, cause: errors.WithStack(fmt.Errorf("%s: %s", kind, fmt.Sprintf(format, args...)))}
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}
