package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps service errors onto gRPC codes. Validation and missing
// parents are permanent for the caller; anything else may be retried.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, rpc.ErrMalformed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrParentNotFound):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	s.logger.Error(ctx, err.Error())
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return rpc.PingResponse(), nil
}

func (s *GRPCServer) CreatePatient(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := rpc.ParseCreatePatientRequest(in)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	id, err := s.screenings.CreatePatient(ctx, req.IdempotencyKey, req.Patient)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Debug(ctx, "patient accepted", "id", id, "worker_id", workerIDFromContext(ctx))
	return rpc.IDResponse(id), nil
}

func (s *GRPCServer) CreateScreening(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := rpc.ParseCreateScreeningRequest(in)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	id, err := s.screenings.CreateScreening(ctx, req.IdempotencyKey, req.PatientID, req.Screening)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Debug(ctx, "screening accepted", "id", id, "patient_id", req.PatientID, "worker_id", workerIDFromContext(ctx))
	return rpc.IDResponse(id), nil
}
