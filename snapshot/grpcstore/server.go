package grpcstore

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/pngme/cidutil"
	"xdao.co/pngme/snapshot"
)

// Server exposes a snapshot.Store over the Snapshots gRPC service.
type Server struct {
	UnimplementedSnapshotsServer
	Store snapshot.Store
}

func (s *Server) Put(_ context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing snapshot store")
	}
	b := in.GetValue()
	if err := snapshot.Check(b); err != nil {
		return nil, statusFor(err)
	}
	want, err := cidutil.Of(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	id, err := s.Store.Put(b)
	if err != nil {
		return nil, statusFor(err)
	}
	if id != want {
		return nil, statusFor(snapshot.ErrCIDMismatch)
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Get(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing snapshot store")
	}
	id, err := cidutil.Parse(in.GetValue())
	if err != nil {
		return nil, statusFor(snapshot.ErrInvalidCID)
	}
	b, err := s.Store.Get(id)
	if err != nil {
		return nil, statusFor(err)
	}
	got, err := cidutil.Of(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	if got != id {
		return nil, statusFor(snapshot.ErrCIDMismatch)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing snapshot store")
	}
	id, err := cidutil.Parse(in.GetValue())
	if err != nil {
		return nil, statusFor(snapshot.ErrInvalidCID)
	}
	return wrapperspb.Bool(s.Store.Has(id)), nil
}
