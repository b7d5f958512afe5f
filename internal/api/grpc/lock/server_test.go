package lock

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/snapx/internal/domain/lease"
)

// fakeService implements Service for unit testing the transport.
type fakeService struct {
	// err is returned from every operation when set.
	err error
	// lastDuration records the duration passed to Acquire.
	lastDuration time.Duration
	// lastBreak records the break period passed to Unlock.
	lastBreak time.Duration
}

func (f *fakeService) Acquire(_ context.Context, name, _ string, duration time.Duration) (*domain.Lease, error) {
	f.lastDuration = duration
	if f.err != nil {
		return nil, f.err
	}

	return &domain.Lease{Name: name, Challenge: "challenge-1", ExpiresAt: time.Unix(2000, 0)}, nil
}

func (f *fakeService) Renew(_ context.Context, name, _ string) (*domain.Lease, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &domain.Lease{Name: name, ExpiresAt: time.Unix(3000, 0)}, nil
}

func (f *fakeService) Unlock(_ context.Context, _, _ string, breakPeriod time.Duration) error {
	f.lastBreak = breakPeriod

	return f.err
}

// dialBufconn serves srv on an in-memory listener and returns a connected client.
func dialBufconn(t *testing.T, srv LockServiceServer) LockServiceClient {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	RegisterLockServiceServer(grpcServer, srv)

	go func() {
		_ = grpcServer.Serve(listener)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()

		grpcServer.Stop()
	})

	return NewLockServiceClient(conn)
}

// TestServer_Validation ensures nil requests and bad durations return InvalidArgument errors.
func TestServer_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))

	_, err := s.Acquire(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	req, err := structpb.NewStruct(map[string]any{FieldName: "demoapp", FieldDuration: "eventually"})
	require.NoError(t, err)

	_, err = s.Acquire(context.Background(), req)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestServer_Roundtrip exercises every method through a real gRPC connection.
func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	fake := new(fakeService)
	client := dialBufconn(t, NewServer(fake))
	ctx := context.Background()

	req, err := structpb.NewStruct(map[string]any{
		FieldName:     "demoapp",
		FieldDuration: "2m",
		FieldOwner:    "ci",
	})
	require.NoError(t, err)

	resp, err := client.Acquire(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "challenge-1", StringField(resp, FieldChallenge))
	require.NotEmpty(t, StringField(resp, FieldExpiresAt))
	require.Equal(t, 2*time.Minute, fake.lastDuration)

	renew, err := structpb.NewStruct(map[string]any{FieldName: "demoapp", FieldChallenge: "challenge-1"})
	require.NoError(t, err)

	_, err = client.Renew(ctx, renew)
	require.NoError(t, err)

	unlock, err := structpb.NewStruct(map[string]any{
		FieldName:        "demoapp",
		FieldChallenge:   "challenge-1",
		FieldBreakPeriod: "30s",
	})
	require.NoError(t, err)

	_, err = client.Unlock(ctx, unlock)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, fake.lastBreak)
}

// TestServer_ErrorCodes maps domain errors to gRPC status codes.
func TestServer_ErrorCodes(t *testing.T) {
	t.Parallel()

	fake := &fakeService{err: domain.ErrConflict}
	client := dialBufconn(t, NewServer(fake))

	req, err := structpb.NewStruct(map[string]any{FieldName: "demoapp", FieldDuration: "1m"})
	require.NoError(t, err)

	_, err = client.Acquire(context.Background(), req)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	fake.err = domain.ErrLeaseGone
	_, err = client.Renew(context.Background(), req)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	fake.err = domain.ErrInvalidRequest
	_, err = client.Unlock(context.Background(), req)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}
