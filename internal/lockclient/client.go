package lockclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/oshokin/snapx/internal/config"
	domain "github.com/oshokin/snapx/internal/domain/lease"
)

// Client is the lock service protocol.
type Client interface {
	// Acquire requests a lease and returns its challenge.
	Acquire(ctx context.Context, name string, duration time.Duration) (string, error)
	// Renew extends the lease held with challenge.
	Renew(ctx context.Context, name, challenge string) error
	// Unlock releases the lease held with challenge.
	Unlock(ctx context.Context, name, challenge string, breakPeriod time.Duration) error
	// Close releases transport resources.
	Close() error
}

var (
	// ErrConflict means the lock is held by someone else.
	ErrConflict = domain.ErrConflict
	// ErrLeaseGone means the lease expired or was released already.
	ErrLeaseGone = domain.ErrLeaseGone
	// ErrInvalidRequest means the service refused the request as malformed.
	ErrInvalidRequest = domain.ErrInvalidRequest

	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errUnexpectedResponse is returned for responses outside the protocol.
	errUnexpectedResponse = errors.New("unexpected lock service response")
)

// Option configures client behaviour.
type Option func(*options)

type options struct {
	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
	// owner describes this client to the service.
	owner string
}

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.callTimeout = timeout
		}
	}
}

// WithOwner overrides the owner description sent on Acquire.
func WithOwner(owner string) Option {
	return func(o *options) {
		o.owner = owner
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		callTimeout: config.DefaultTimeout,
		owner:       DetectOwner(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// callContext returns a context with the call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (o *options) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, o.callTimeout)
}

// New builds the client selected by the settings' lock transport.
func New(cfg *config.Config, opts ...Option) (Client, error) {
	if err := config.RequireLockServer(cfg); err != nil {
		return nil, err
	}

	opts = append([]Option{WithCallTimeout(cfg.Timeout)}, opts...)

	switch cfg.LockTransport {
	case config.TransportGRPC:
		return DialGRPC(cfg.LockServer, opts...)
	default:
		return NewHTTP(cfg.LockServer, opts...)
	}
}

// DetectOwner describes the current host and user as "hostname/username".
func DetectOwner() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	username := "unknown-user"
	if current, err := user.Current(); err == nil {
		username = current.Username
	}

	return fmt.Sprintf("%s/%s", hostname, username)
}
