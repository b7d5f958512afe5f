package lock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/mutex"
	"github.com/oshokin/snapx/internal/service/common"
)

// errNameRequired is returned when no lock name is given.
var errNameRequired = errors.New("lock name is required")

// Options contains inputs for the lock and unlock verbs.
type Options struct {
	// ConfigPath is the settings file (defaults to snapx-settings.yaml).
	ConfigPath string
	// Name is the lock name, usually an app id.
	Name string
	// Challenge is the lease to release (unlock only).
	Challenge string
	// BreakPeriod keeps the lease for a grace window after unlock.
	BreakPeriod time.Duration
	// Output receives the challenge of a held lease (defaults to stdout).
	Output io.Writer
}

// RunLock acquires opts.Name and holds it until ctx is canceled.
func RunLock(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "lock")

	if opts.Name == "" {
		return errNameRequired
	}

	cfg, err := common.LoadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	session, err := common.OpenLockSession(cfg, logger.FromContext(ctx))
	if err != nil {
		return err
	}

	// Best-effort cleanup.
	defer func() {
		_ = session.Close()
	}()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return Hold(ctx, session.Client, opts.Name, session.Options, out)
}

// Hold acquires name, writes its challenge to out and blocks until ctx is
// canceled or the lease is lost. The lease is released on return.
func Hold(ctx context.Context, locker mutex.Locker, name string, opts mutex.Options, out io.Writer) (err error) {
	m := mutex.New(locker, name, opts)

	defer func() {
		if disposeErr := m.Dispose(ctx); disposeErr != nil {
			err = errors.Join(err, disposeErr)
		}
	}()

	if err = m.Acquire(ctx); err != nil {
		return err
	}

	if _, err = fmt.Fprintln(out, m.Challenge()); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Lock held, interrupt to release", "name", name)

	select {
	case <-ctx.Done():
		return nil
	case <-m.Lost():
		return fmt.Errorf("%w: %s", mutex.ErrLockLost, name)
	}
}

// RunUnlock releases the lease identified by opts.Challenge.
func RunUnlock(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "unlock")

	if opts.Name == "" {
		return errNameRequired
	}

	cfg, err := common.LoadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	session, err := common.OpenLockSession(cfg, logger.FromContext(ctx))
	if err != nil {
		return err
	}

	// Best-effort cleanup.
	defer func() {
		_ = session.Close()
	}()

	if err = session.Client.Unlock(ctx, opts.Name, opts.Challenge, opts.BreakPeriod); err != nil {
		return fmt.Errorf("unlock %s: %w", opts.Name, err)
	}

	logger.InfoKV(ctx, "Lock released", "name", opts.Name, "break_period", opts.BreakPeriod)

	return nil
}
