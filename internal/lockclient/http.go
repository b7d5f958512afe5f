package lockclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	api "github.com/oshokin/snapx/internal/api/http/lock"
	"github.com/oshokin/snapx/internal/version"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// HTTPClient speaks the JSON lock protocol.
type HTTPClient struct {
	// baseURL is the lock service root.
	baseURL *url.URL
	// httpClient performs requests.
	httpClient *http.Client
	// opts holds call settings.
	opts *options
}

// NewHTTP creates a client for the lock service at baseURL.
func NewHTTP(baseURL string, opts ...Option) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, errAddressRequired
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse lock server URL: %w", err)
	}

	return &HTTPClient{
		baseURL:    parsed,
		httpClient: &http.Client{},
		opts:       newOptions(opts),
	}, nil
}

// Acquire implements Client. A 409 answer means the lock is held elsewhere and
// any other 4xx means the request itself was refused.
func (c *HTTPClient) Acquire(ctx context.Context, name string, duration time.Duration) (string, error) {
	var resp api.AcquireResponse

	status, err := c.post(ctx, api.PathAcquire, &api.AcquireRequest{
		Name:     name,
		Duration: duration.String(),
		Owner:    c.opts.owner,
	}, &resp)
	if err != nil {
		return "", err
	}

	switch {
	case status == http.StatusConflict:
		return "", fmt.Errorf("acquire %s: %w", name, ErrConflict)
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return "", fmt.Errorf("acquire %s: status %d: %w", name, status, ErrInvalidRequest)
	}

	if status != http.StatusOK || resp.Challenge == "" {
		return "", fmt.Errorf("acquire %s: status %d: %w", name, status, errUnexpectedResponse)
	}

	return resp.Challenge, nil
}

// Renew implements Client. Any 4xx answer means the lease is gone.
func (c *HTTPClient) Renew(ctx context.Context, name, challenge string) error {
	status, err := c.post(ctx, api.PathRenew, &api.RenewRequest{
		Name:      name,
		Challenge: challenge,
	}, nil)
	if err != nil {
		return err
	}

	return leaseStatus("renew", name, status)
}

// Unlock implements Client. Any 4xx answer means the lease is gone.
func (c *HTTPClient) Unlock(ctx context.Context, name, challenge string, breakPeriod time.Duration) error {
	req := &api.UnlockRequest{
		Name:      name,
		Challenge: challenge,
	}

	if breakPeriod > 0 {
		req.BreakPeriod = breakPeriod.String()
	}

	status, err := c.post(ctx, api.PathUnlock, req, nil)
	if err != nil {
		return err
	}

	return leaseStatus("unlock", name, status)
}

// Close implements Client.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()

	return nil
}

func leaseStatus(operation, name string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return fmt.Errorf("%s %s: %w", operation, name, ErrLeaseGone)
	default:
		return fmt.Errorf("%s %s: status %d: %w", operation, name, status, errUnexpectedResponse)
	}
}

// post sends body as JSON and decodes a 200 response into out (when non-nil).
func (c *HTTPClient) post(ctx context.Context, route string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := c.opts.callContext(ctx)
	defer cancel()

	target := *c.baseURL
	target.Path = path.Join(target.Path, route)

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call lock service: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK || out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

		return resp.StatusCode, nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return resp.StatusCode, nil
}
