package lease

import (
	"context"
	"errors"
	"sync"

	domain "github.com/oshokin/snapx/internal/domain/lease"
)

// Repository defines persistence operations for leases.
// Callers serialize read-modify-write sequences themselves.
type Repository interface {
	Get(ctx context.Context, name string) (*domain.Lease, error)
	Put(ctx context.Context, l *domain.Lease) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*domain.Lease, error)
}

// ErrNotFound is returned when no lease is stored under a name.
var ErrNotFound = errors.New("lease not found")

// MemoryRepository keeps leases in a map.
type MemoryRepository struct {
	// leases maps lock names to their current lease.
	leases map[string]*domain.Lease
	// mu protects leases.
	mu sync.RWMutex
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		leases: make(map[string]*domain.Lease),
	}
}

// Get returns a copy of the lease stored under name.
func (r *MemoryRepository) Get(_ context.Context, name string) (*domain.Lease, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leases[name]
	if !ok {
		return nil, ErrNotFound
	}

	return l.Clone(), nil
}

// Put stores a copy of the lease, replacing any previous one.
func (r *MemoryRepository) Put(_ context.Context, l *domain.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leases[l.Name] = l.Clone()

	return nil
}

// Delete removes the lease stored under name. Deleting a missing lease is not an error.
func (r *MemoryRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.leases, name)

	return nil
}

// List returns copies of every stored lease.
func (r *MemoryRepository) List(_ context.Context) ([]*domain.Lease, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Lease, 0, len(r.leases))
	for _, l := range r.leases {
		result = append(result, l.Clone())
	}

	return result, nil
}
