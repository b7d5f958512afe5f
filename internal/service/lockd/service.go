package lockd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/oshokin/snapx/internal/domain/lease"
	"github.com/oshokin/snapx/internal/logger"
	repo "github.com/oshokin/snapx/internal/repository/lease"
)

// MaxLeaseDuration bounds the TTL a client can request.
const MaxLeaseDuration = domain.MaxDuration

// Service is the lease bookkeeping shared by every transport.
type Service struct {
	// repo stores leases.
	repo repo.Repository
	// log is the service logger.
	log *zap.SugaredLogger
	// now is the clock.
	now func() time.Time
	// newChallenge generates challenge tokens.
	newChallenge func() string
	// mu serializes read-modify-write cycles against repo.
	mu sync.Mutex
}

// NewService creates a service backed by the provided repository.
func NewService(repository repo.Repository, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:         repository,
		log:          logger.OrNop(log),
		now:          time.Now,
		newChallenge: uuid.NewString,
	}
}

// Acquire grants name for duration unless a live lease exists.
func (s *Service) Acquire(ctx context.Context, name, owner string, duration time.Duration) (*domain.Lease, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}

	if duration <= 0 || duration > MaxLeaseDuration {
		return nil, fmt.Errorf("%w: duration must be in (0, %s]", domain.ErrInvalidRequest, MaxLeaseDuration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	current, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}

	if current != nil && !current.Expired(now) {
		s.log.Debugw("Lock acquisition refused", "name", name, "holder", current.Owner)

		return nil, fmt.Errorf("%s: %w", name, domain.ErrConflict)
	}

	granted := &domain.Lease{
		Name:       name,
		Challenge:  s.newChallenge(),
		Owner:      owner,
		Duration:   duration,
		AcquiredAt: now,
		ExpiresAt:  now.Add(duration),
	}

	if err = s.repo.Put(ctx, granted); err != nil {
		return nil, fmt.Errorf("persist lease: %w", err)
	}

	s.log.Infow("Lock acquired", "name", name, "owner", owner, "expires_at", granted.ExpiresAt)

	return granted.Clone(), nil
}

// Renew extends a live lease by its duration.
func (s *Service) Renew(ctx context.Context, name, challenge string) (*domain.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.held(ctx, name, challenge)
	if err != nil {
		return nil, err
	}

	current.ExpiresAt = s.now().Add(current.Duration)

	if err = s.repo.Put(ctx, current); err != nil {
		return nil, fmt.Errorf("persist lease: %w", err)
	}

	s.log.Debugw("Lock renewed", "name", name, "expires_at", current.ExpiresAt)

	return current.Clone(), nil
}

// Unlock releases a live lease. With a positive breakPeriod the lock stays
// unavailable for that long, but the challenge stops being valid immediately.
func (s *Service) Unlock(ctx context.Context, name, challenge string, breakPeriod time.Duration) error {
	if breakPeriod < 0 || breakPeriod > MaxLeaseDuration {
		return fmt.Errorf("%w: break period must be in [0, %s]", domain.ErrInvalidRequest, MaxLeaseDuration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.held(ctx, name, challenge)
	if err != nil {
		return err
	}

	if breakPeriod == 0 {
		if err = s.repo.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete lease: %w", err)
		}

		s.log.Infow("Lock released", "name", name)

		return nil
	}

	current.Challenge = ""
	current.ExpiresAt = s.now().Add(breakPeriod)

	if err = s.repo.Put(ctx, current); err != nil {
		return fmt.Errorf("persist lease: %w", err)
	}

	s.log.Infow("Lock released with break period", "name", name, "available_at", current.ExpiresAt)

	return nil
}

// Leases lists live leases, pruning expired ones.
func (s *Service) Leases(ctx context.Context) ([]*domain.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	live := all[:0]

	for _, l := range all {
		if l.Expired(now) {
			if err = s.repo.Delete(ctx, l.Name); err != nil {
				return nil, fmt.Errorf("prune lease: %w", err)
			}

			continue
		}

		live = append(live, l)
	}

	return live, nil
}

// held loads name and checks it is live and owned by challenge.
func (s *Service) held(ctx context.Context, name, challenge string) (*domain.Lease, error) {
	if strings.TrimSpace(name) == "" || challenge == "" {
		return nil, fmt.Errorf("%w: name and challenge are required", domain.ErrInvalidRequest)
	}

	current, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}

	if current == nil || !current.Held(s.now()) || current.Challenge != challenge {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrLeaseGone)
	}

	return current, nil
}

func (s *Service) load(ctx context.Context, name string) (*domain.Lease, error) {
	current, err := s.repo.Get(ctx, name)

	switch {
	case err == nil:
		return current, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("load lease: %w", err)
	}
}
