package mutex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/snapx/internal/lockclient"
	"github.com/oshokin/snapx/internal/logger"
)

// State is a mutex lifecycle stage.
type State int

// Mutex states.
const (
	StateIdle State = iota
	StateAcquiring
	StateAcquired
	StateReleasing
	StateDisposed
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateAcquiring: "acquiring",
	StateAcquired:  "acquired",
	StateReleasing: "releasing",
	StateDisposed:  "disposed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Locker is the subset of the lock service client the mutex needs.
type Locker interface {
	Acquire(ctx context.Context, name string, duration time.Duration) (string, error)
	Renew(ctx context.Context, name, challenge string) error
	Unlock(ctx context.Context, name, challenge string, breakPeriod time.Duration) error
}

// Mutex is a lease-backed lock on a single name.
type Mutex struct {
	// locker talks to the lock service.
	locker Locker
	// name is the lock name.
	name string
	// opts holds timing settings.
	opts Options
	// log is the mutex logger.
	log *zap.SugaredLogger

	// opMu serializes TryAcquire and Dispose.
	opMu sync.Mutex
	// mu guards the fields below.
	mu sync.Mutex
	// state is the lifecycle stage.
	state State
	// challenge proves ownership of the lease.
	challenge string
	// lost is set once the lease can no longer be trusted.
	lost bool
	// rejected is set when the service refused the last acquire request as
	// invalid, so retrying cannot succeed.
	rejected error
	// lostCh is closed when the lease is lost.
	lostCh chan struct{}
	// stopRenew cancels the renewal loop.
	stopRenew context.CancelFunc
	// renewDone is closed when the renewal loop returns.
	renewDone chan struct{}
}

// New creates an idle mutex for name.
func New(locker Locker, name string, opts Options) *Mutex {
	opts = opts.withDefaults()

	return &Mutex{
		locker: locker,
		name:   name,
		opts:   opts,
		log:    logger.OrNop(opts.Logger).With("lock", name),
		state:  StateIdle,
		lostCh: make(chan struct{}),
	}
}

// Name returns the lock name.
func (m *Mutex) Name() string {
	return m.name
}

// State returns the current lifecycle stage.
func (m *Mutex) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Challenge returns the challenge of the held lease, or "" when none is held.
func (m *Mutex) Challenge() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAcquired {
		return ""
	}

	return m.challenge
}

// Acquired reports whether the lease is currently held and trusted.
func (m *Mutex) Acquired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state == StateAcquired && !m.lost
}

// Disposed reports whether Dispose has completed.
func (m *Mutex) Disposed() bool {
	return m.State() == StateDisposed
}

// Lost is closed when a held lease is lost.
func (m *Mutex) Lost() <-chan struct{} {
	return m.lostCh
}

// TryAcquire requests the lease once. Contention and transport failures are
// logged and reported as false.
func (m *Mutex) TryAcquire(ctx context.Context) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()

	switch m.state {
	case StateAcquired:
		held := !m.lost
		m.mu.Unlock()

		return held
	case StateIdle:
		m.state = StateAcquiring
		m.mu.Unlock()
	default:
		m.mu.Unlock()

		return false
	}

	requested := time.Now()

	challenge, err := m.locker.Acquire(ctx, m.name, m.opts.Duration)
	if err != nil {
		switch {
		case errors.Is(err, lockclient.ErrConflict):
			m.log.Infow("Lock is busy")
		case errors.Is(err, lockclient.ErrInvalidRequest):
			m.log.Errorw("Lock request rejected", "error", err)
		default:
			m.log.Warnw("Failed to acquire lock", "error", err)
		}

		m.mu.Lock()
		m.state = StateIdle
		m.rejected = nil

		if errors.Is(err, lockclient.ErrInvalidRequest) {
			m.rejected = err
		}

		m.mu.Unlock()

		return false
	}

	renewCtx, stopRenew := context.WithCancel(context.WithoutCancel(ctx))
	renewDone := make(chan struct{})

	m.mu.Lock()
	m.state = StateAcquired
	m.challenge = challenge
	m.stopRenew = stopRenew
	m.renewDone = renewDone
	m.mu.Unlock()

	m.log.Infow("Lock acquired", "duration", m.opts.Duration)

	go m.renewLoop(renewCtx, challenge, requested, renewDone)

	return true
}

// Dispose stops renewal and releases the lease if one was granted. It is
// idempotent and never calls the service for a mutex that was not acquired.
// The release call ignores ctx cancellation and is bounded by ReleaseTimeout.
func (m *Mutex) Dispose(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()

	if m.state == StateDisposed {
		m.mu.Unlock()

		return nil
	}

	held := m.state == StateAcquired
	if held {
		m.state = StateReleasing
	}

	challenge := m.challenge
	stopRenew, renewDone := m.stopRenew, m.renewDone
	m.mu.Unlock()

	if stopRenew != nil {
		stopRenew()
		<-renewDone
	}

	var err error
	if held {
		err = m.release(ctx, challenge)
	}

	m.mu.Lock()
	m.state = StateDisposed
	m.challenge = ""
	m.stopRenew = nil
	m.renewDone = nil
	m.mu.Unlock()

	return err
}

func (m *Mutex) release(ctx context.Context, challenge string) error {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.ReleaseTimeout)
	defer cancel()

	err := m.locker.Unlock(releaseCtx, m.name, challenge, m.opts.BreakPeriod)

	switch {
	case err == nil:
		m.log.Infow("Lock released")

		return nil
	case errors.Is(err, lockclient.ErrLeaseGone):
		m.log.Infow("Lock was already released")

		return nil
	default:
		m.log.Errorw("Failed to release lock", "error", err)

		return fmt.Errorf("release lock %s: %w", m.name, err)
	}
}

// renewLoop extends the lease every RenewInterval. The lease is counted from
// the moment the last successful request was sent, and it is declared lost
// once the next renewal could no longer land before it expires.
func (m *Mutex) renewLoop(ctx context.Context, challenge string, lastRenewed time.Time, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.opts.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sent := time.Now()
		err := m.locker.Renew(ctx, m.name, challenge)

		switch {
		case err == nil:
			lastRenewed = sent

			m.log.Debugw("Lock renewed")
		case ctx.Err() != nil:
			return
		case errors.Is(err, lockclient.ErrLeaseGone):
			m.markLost(err)

			return
		case time.Since(lastRenewed)+m.opts.RenewInterval >= m.opts.Duration:
			m.markLost(err)

			return
		default:
			m.log.Warnw("Failed to renew lock, will retry", "error", err)
		}
	}
}

func (m *Mutex) markLost(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lost {
		return
	}

	m.lost = true
	close(m.lostCh)

	m.log.Errorw("Lock lost", "error", cause)
}
