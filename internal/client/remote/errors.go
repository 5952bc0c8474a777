package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrUnavailable = errors.New("server unavailable")

// Class says whether a failed call may succeed if repeated unchanged.
type Class int

const (
	Retriable Class = iota
	Terminal
)

func (c Class) String() string {
	if c == Terminal {
		return "terminal"
	}
	return "retriable"
}

// Error is a failed remote call.
type Error struct {
	Class Class
	Code  codes.Code
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s (%s): %v", e.Class, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify returns the class of err. Anything not known to be terminal is
// retriable: network failures, timeouts, server-side faults and rejected
// credentials (which may be fixed by reconfiguring the token).
func Classify(err error) Class {
	var re *Error
	if errors.As(err, &re) {
		return re.Class
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Retriable
	}
	if st, ok := status.FromError(err); ok {
		return classOf(st.Code())
	}
	return Retriable
}

func classOf(code codes.Code) Class {
	switch code {
	case codes.InvalidArgument,
		codes.FailedPrecondition,
		codes.AlreadyExists,
		codes.NotFound,
		codes.OutOfRange,
		codes.Unimplemented,
		codes.PermissionDenied:
		return Terminal
	default:
		return Retriable
	}
}

// mapError converts a gRPC error into *Error.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	code := st.Code()

	inner := err
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		inner = fmt.Errorf("%w: %s", common.ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		inner = fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	}
	return &Error{Class: classOf(code), Code: code, Err: inner}
}
