package wire

import (
	"errors"
	"fmt"

	"github.com/behrlich/go-wire/internal/wirecmd"
)

// Error represents a structured wire protocol error with context.
type Error struct {
	Op         string            // Operation that failed (e.g., "CreateBuffer", "MapAsync")
	ObjectType wirecmd.ObjectType // Object type involved, if any
	ObjectID   uint32            // Object id involved (0 if not applicable)
	Code       ErrorCode         // High-level error category
	Msg        string            // Human-readable message
	Inner      error             // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.ObjectID != 0 {
		parts = append(parts, fmt.Sprintf("%s=%d", e.ObjectType, e.ObjectID))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("wire: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("wire: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support keyed on error category.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents high-level error categories on the wire boundary.
type ErrorCode string

const (
	ErrCodeUnknownObject     ErrorCode = "unknown object id"
	ErrCodePoisonedObject    ErrorCode = "poisoned object"
	ErrCodeFatalProtocol     ErrorCode = "fatal protocol violation"
	ErrCodeDriverRejected    ErrorCode = "driver rejected operation"
	ErrCodeTransport         ErrorCode = "transport failure"
	ErrCodeInvalidParameters ErrorCode = "invalid parameters"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewObjectError creates a new error scoped to a specific object.
func NewObjectError(op string, objType wirecmd.ObjectType, objID uint32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, ObjectType: objType, ObjectID: objID, Code: code, Msg: msg}
}

// WrapError wraps an existing error with wire context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if we, ok := inner.(*Error); ok {
		return &Error{
			Op:         op,
			ObjectType: we.ObjectType,
			ObjectID:   we.ObjectID,
			Code:       we.Code,
			Msg:        we.Msg,
			Inner:      we.Inner,
		}
	}

	return &Error{
		Op:    op,
		Code:  ErrCodeDriverRejected,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var wireErr *Error
	if errors.As(err, &wireErr) {
		return wireErr.Code == code
	}
	return false
}

// FatalProtocolError wraps a violation of the wire protocol's framing or
// object-identity invariants: once returned, the endpoint must
// stop processing the connection (analogous to transport.ErrFatalProtocol,
// but carrying the offending operation for diagnostics).
type FatalProtocolError struct {
	Op  string
	Msg string
}

func (e *FatalProtocolError) Error() string {
	return fmt.Sprintf("wire: fatal protocol error in %s: %s", e.Op, e.Msg)
}

// NewFatalProtocolError creates a new FatalProtocolError.
func NewFatalProtocolError(op, msg string) *FatalProtocolError {
	return &FatalProtocolError{Op: op, Msg: msg}
}
