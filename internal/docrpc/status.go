package docrpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus converts a store error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// FromStatus converts a gRPC error back into a common sentinel, keeping the
// status message.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		sentinel = common.ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = common.ErrUnavailable
	case codes.NotFound:
		sentinel = common.ErrNotFound
	case codes.InvalidArgument:
		sentinel = common.ErrBadRequest
	case codes.Canceled:
		sentinel = context.Canceled
	default:
		sentinel = common.ErrInternal
	}
	return &statusError{sentinel: sentinel, msg: st.Message()}
}

type statusError struct {
	sentinel error
	msg      string
}

func (e *statusError) Error() string {
	if e.msg == "" || e.msg == e.sentinel.Error() {
		return e.sentinel.Error()
	}
	return e.sentinel.Error() + ": " + e.msg
}

func (e *statusError) Unwrap() error { return e.sentinel }
