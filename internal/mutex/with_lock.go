package mutex

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithLock runs fn while holding the lock name.
//
// Acquisition is attempted 1+opts.Retries times before ErrLockContention is
// returned. fn receives a context that is canceled if the lease is lost, in
// which case the result wraps ErrLockLost. The mutex is always disposed.
func WithLock(
	ctx context.Context,
	locker Locker,
	name string,
	opts Options,
	fn func(ctx context.Context) error,
) (err error) {
	m := New(locker, name, opts)

	defer func() {
		if disposeErr := m.Dispose(ctx); disposeErr != nil {
			err = errors.Join(err, disposeErr)
		}
	}()

	if err = m.Acquire(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		select {
		case <-m.Lost():
			cancel(ErrLockLost)
		case <-runCtx.Done():
		}
	}()

	err = fn(runCtx)

	select {
	case <-m.Lost():
		return errors.Join(fmt.Errorf("%w: %s", ErrLockLost, name), err)
	default:
		return err
	}
}

// Acquire makes up to 1+Retries attempts to take the lease, pausing
// RetryDelay between them, and returns ErrLockContention when all fail.
// A request the service rejects as invalid is not retried.
func (m *Mutex) Acquire(ctx context.Context) error {
	attempts := m.opts.Retries + 1

	for attempt := 1; ; attempt++ {
		if m.TryAcquire(ctx) {
			return nil
		}

		if err := m.rejection(); err != nil {
			return fmt.Errorf("acquire lock %s: %w", m.name, err)
		}

		if attempt >= attempts {
			return fmt.Errorf("%w: %s after %d attempts", ErrLockContention, m.name, attempts)
		}

		m.log.Infow("Retrying lock acquisition", "attempt", attempt+1, "of", attempts)

		timer := time.NewTimer(m.opts.RetryDelay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *Mutex) rejection() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rejected
}
