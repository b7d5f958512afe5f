package lockclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/snapx/internal/api/grpc/lock"
	"github.com/oshokin/snapx/internal/version"
)

// GRPCClient speaks the lock protocol over gRPC.
type GRPCClient struct {
	// conn is the underlying gRPC connection, nil when the client was built over an existing one.
	conn *grpc.ClientConn
	// api is the lock service stub.
	api api.LockServiceClient
	// opts holds call settings.
	opts *options
}

// DialGRPC connects to the lock service at address.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func DialGRPC(address string, opts ...Option) (*GRPCClient, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()))
	if err != nil {
		return nil, fmt.Errorf("dial lock server: %w", err)
	}

	client := NewGRPC(conn, opts...)
	client.conn = conn

	return client, nil
}

// NewGRPC creates a client over an existing connection, which the caller keeps owning.
func NewGRPC(cc grpc.ClientConnInterface, opts ...Option) *GRPCClient {
	return &GRPCClient{
		api:  api.NewLockServiceClient(cc),
		opts: newOptions(opts),
	}
}

// Acquire implements Client.
func (c *GRPCClient) Acquire(ctx context.Context, name string, duration time.Duration) (string, error) {
	req, err := structpb.NewStruct(map[string]any{
		api.FieldName:     name,
		api.FieldDuration: duration.String(),
		api.FieldOwner:    c.opts.owner,
	})
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	callCtx, cancel := c.opts.callContext(ctx)
	defer cancel()

	resp, err := c.api.Acquire(callCtx, req)
	if err != nil {
		if status.Code(err) == codes.InvalidArgument {
			return "", fmt.Errorf("acquire %s: %w: %w", name, ErrInvalidRequest, err)
		}

		if isRejection(err) {
			return "", fmt.Errorf("acquire %s: %w", name, ErrConflict)
		}

		return "", fmt.Errorf("acquire %s: %w", name, err)
	}

	challenge := api.StringField(resp, api.FieldChallenge)
	if challenge == "" {
		return "", fmt.Errorf("acquire %s: empty challenge: %w", name, errUnexpectedResponse)
	}

	return challenge, nil
}

// Renew implements Client.
func (c *GRPCClient) Renew(ctx context.Context, name, challenge string) error {
	req, err := structpb.NewStruct(map[string]any{
		api.FieldName:      name,
		api.FieldChallenge: challenge,
	})
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	callCtx, cancel := c.opts.callContext(ctx)
	defer cancel()

	if _, err = c.api.Renew(callCtx, req); err != nil {
		return leaseError("renew", name, err)
	}

	return nil
}

// Unlock implements Client.
func (c *GRPCClient) Unlock(ctx context.Context, name, challenge string, breakPeriod time.Duration) error {
	fields := map[string]any{
		api.FieldName:      name,
		api.FieldChallenge: challenge,
	}

	if breakPeriod > 0 {
		fields[api.FieldBreakPeriod] = breakPeriod.String()
	}

	req, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	callCtx, cancel := c.opts.callContext(ctx)
	defer cancel()

	if _, err = c.api.Unlock(callCtx, req); err != nil {
		return leaseError("unlock", name, err)
	}

	return nil
}

// Close releases the underlying gRPC connection when this client dialed it.
func (c *GRPCClient) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

func leaseError(operation, name string, err error) error {
	if isRejection(err) {
		return fmt.Errorf("%s %s: %w", operation, name, ErrLeaseGone)
	}

	return fmt.Errorf("%s %s: %w", operation, name, err)
}

// isRejection reports whether the service answered with a client-side refusal,
// the gRPC analogue of an HTTP 4xx.
func isRejection(err error) bool {
	switch status.Code(err) {
	case codes.FailedPrecondition, codes.InvalidArgument, codes.NotFound,
		codes.AlreadyExists, codes.PermissionDenied, codes.Aborted:
		return true
	default:
		return false
	}
}
