package grpcstore

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/pngme/snapshot"
)

// statusFor maps store errors onto gRPC status codes.
func statusFor(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, snapshot.ErrNotFound):
		return status.Error(codes.NotFound, snapshot.ErrNotFound.Error())
	case errors.Is(err, snapshot.ErrInvalidCID):
		return status.Error(codes.InvalidArgument, snapshot.ErrInvalidCID.Error())
	case errors.Is(err, snapshot.ErrNotPNG):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, snapshot.ErrCIDMismatch):
		return status.Error(codes.DataLoss, snapshot.ErrCIDMismatch.Error())
	case errors.Is(err, snapshot.ErrImmutable):
		return status.Error(codes.AlreadyExists, snapshot.ErrImmutable.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// errorFor maps a gRPC status back onto the store's sentinel errors.
func errorFor(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return snapshot.ErrNotFound
	case codes.InvalidArgument:
		if strings.HasPrefix(st.Message(), snapshot.ErrNotPNG.Error()) {
			return fmt.Errorf("%w (remote: %s)", snapshot.ErrNotPNG, st.Message())
		}
		return snapshot.ErrInvalidCID
	case codes.DataLoss:
		return snapshot.ErrCIDMismatch
	case codes.AlreadyExists:
		return snapshot.ErrImmutable
	default:
		return err
	}
}
