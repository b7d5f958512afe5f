package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/snapx/internal/domain/lease"
)

// Service abstracts the lease operations the transport depends on.
type Service interface {
	Acquire(ctx context.Context, name, owner string, duration time.Duration) (*domain.Lease, error)
	Renew(ctx context.Context, name, challenge string) (*domain.Lease, error)
	Unlock(ctx context.Context, name, challenge string, breakPeriod time.Duration) error
}

// Server implements LockServiceServer on top of Service.
type Server struct {
	// service provides the lease bookkeeping.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Acquire grants a lease.
func (s *Server) Acquire(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	duration, err := DurationField(req, FieldDuration)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	granted, err := s.service.Acquire(ctx, StringField(req, FieldName), StringField(req, FieldOwner), duration)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		FieldChallenge: granted.Challenge,
		FieldExpiresAt: granted.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
}

// Renew extends a lease.
func (s *Server) Renew(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	renewed, err := s.service.Renew(ctx, StringField(req, FieldName), StringField(req, FieldChallenge))
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		FieldExpiresAt: renewed.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
}

// Unlock releases a lease.
func (s *Server) Unlock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	breakPeriod, err := DurationField(req, FieldBreakPeriod)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	err = s.service.Unlock(ctx, StringField(req, FieldName), StringField(req, FieldChallenge), breakPeriod)
	if err != nil {
		return nil, toStatus(err)
	}

	return new(structpb.Struct), nil
}

// StringField reads a string field, returning "" when absent.
func StringField(msg *structpb.Struct, field string) string {
	return msg.GetFields()[field].GetStringValue()
}

// DurationField parses a Go duration string field; an absent field is zero.
func DurationField(msg *structpb.Struct, field string) (time.Duration, error) {
	raw := StringField(msg, field)
	if raw == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}

	return duration, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrLeaseGone):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
