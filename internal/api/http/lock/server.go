package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/oshokin/snapx/internal/domain/lease"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Service abstracts the lease operations the transport depends on.
type Service interface {
	Acquire(ctx context.Context, name, owner string, duration time.Duration) (*domain.Lease, error)
	Renew(ctx context.Context, name, challenge string) (*domain.Lease, error)
	Unlock(ctx context.Context, name, challenge string, breakPeriod time.Duration) error
	Leases(ctx context.Context) ([]*domain.Lease, error)
}

// Server implements the HTTP lock API.
type Server struct {
	// service provides the lease bookkeeping.
	service Service
	// requests counts calls by operation and outcome.
	requests *prometheus.CounterVec
	// registry backs the /metrics endpoint.
	registry *prometheus.Registry
}

// NewServer wires the service into an HTTP handler with its own metrics registry.
func NewServer(service Service) *Server {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapx",
		Subsystem: "lockd",
		Name:      "requests_total",
		Help:      "Lock service requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	registry.MustRegister(requests)

	return &Server{
		service:  service,
		requests: requests,
		registry: registry,
	}
}

// Handler returns the router serving every lock route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)

	return r
}

// RegisterHTTP mounts the lock routes on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post(PathAcquire, s.handleAcquire)
	r.Post(PathRenew, s.handleRenew)
	r.Post(PathUnlock, s.handleUnlock)
	r.Get(PathList, s.handleList)
	r.Handle(PathMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Requests exposes the request counter for tests and embedding servers.
func (s *Server) Requests() *prometheus.CounterVec {
	return s.requests
}

func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req AcquireRequest
	if !s.decode(w, r, "acquire", &req) {
		return
	}

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		s.fail(w, "acquire", fmt.Errorf("%w: duration: %w", domain.ErrInvalidRequest, err))

		return
	}

	granted, err := s.service.Acquire(r.Context(), req.Name, req.Owner, duration)
	if err != nil {
		s.fail(w, "acquire", err)

		return
	}

	s.ok(w, "acquire", &AcquireResponse{
		Challenge: granted.Challenge,
		ExpiresAt: granted.ExpiresAt,
	})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	var req RenewRequest
	if !s.decode(w, r, "renew", &req) {
		return
	}

	renewed, err := s.service.Renew(r.Context(), req.Name, req.Challenge)
	if err != nil {
		s.fail(w, "renew", err)

		return
	}

	s.ok(w, "renew", &RenewResponse{ExpiresAt: renewed.ExpiresAt})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if !s.decode(w, r, "unlock", &req) {
		return
	}

	var breakPeriod time.Duration

	if req.BreakPeriod != "" {
		parsed, err := time.ParseDuration(req.BreakPeriod)
		if err != nil {
			s.fail(w, "unlock", fmt.Errorf("%w: break_period: %w", domain.ErrInvalidRequest, err))

			return
		}

		breakPeriod = parsed
	}

	if err := s.service.Unlock(r.Context(), req.Name, req.Challenge, breakPeriod); err != nil {
		s.fail(w, "unlock", err)

		return
	}

	s.ok(w, "unlock", struct{}{})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	leases, err := s.service.Leases(r.Context())
	if err != nil {
		s.fail(w, "list", err)

		return
	}

	views := make([]LeaseView, 0, len(leases))
	for _, l := range leases {
		views = append(views, LeaseView{
			Name:       l.Name,
			Owner:      l.Owner,
			AcquiredAt: l.AcquiredAt,
			ExpiresAt:  l.ExpiresAt,
		})
	}

	s.ok(w, "list", views)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, operation string, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		s.fail(w, operation, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))

		return false
	}

	return true
}

func (s *Server) ok(w http.ResponseWriter, operation string, body any) {
	s.requests.WithLabelValues(operation, "ok").Inc()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) fail(w http.ResponseWriter, operation string, err error) {
	status, outcome := http.StatusInternalServerError, "error"

	switch {
	case errors.Is(err, domain.ErrConflict):
		status, outcome = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrLeaseGone):
		status, outcome = http.StatusConflict, "gone"
	case errors.Is(err, domain.ErrInvalidRequest):
		status, outcome = http.StatusBadRequest, "invalid"
	}

	s.requests.WithLabelValues(operation, outcome).Inc()
	writeJSON(w, status, &ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
