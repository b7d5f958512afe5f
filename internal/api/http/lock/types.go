package lock

import "time"

// Route paths.
const (
	PathAcquire = "/v1/locks/acquire"
	PathRenew   = "/v1/locks/renew"
	PathUnlock  = "/v1/locks/unlock"
	PathList    = "/v1/locks"
	PathMetrics = "/metrics"
)

// AcquireRequest asks for a lease on Name.
type AcquireRequest struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Owner    string `json:"owner,omitempty"`
}

// AcquireResponse carries the granted challenge.
type AcquireResponse struct {
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RenewRequest extends the lease identified by Name and Challenge.
type RenewRequest struct {
	Name      string `json:"name"`
	Challenge string `json:"challenge"`
}

// RenewResponse carries the new expiry.
type RenewResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// UnlockRequest releases the lease identified by Name and Challenge.
type UnlockRequest struct {
	Name        string `json:"name"`
	Challenge   string `json:"challenge"`
	BreakPeriod string `json:"break_period,omitempty"`
}

// LeaseView is a lease as listed by GET /v1/locks. The challenge is never exposed.
type LeaseView struct {
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error string `json:"error"`
}
