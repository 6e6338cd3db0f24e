package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"hoslink/internal/platform/config"
	"hoslink/internal/platform/metrics"
	"hoslink/pkg/platform/circuit"
)

const maxResponseBytes = 1 << 20

// HTTPClient is the transport shared by the vendor adapters: bounded timeout, a
// per-vendor circuit breaker, status-code classification and JSON decoding.
type HTTPClient struct {
	vendor  string
	baseURL *url.URL
	client  *http.Client
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHTTPClient builds the client for one vendor configuration.
func NewHTTPClient(cfg config.EldProviderConfig, deps Deps, opts ...circuit.Option) (*HTTPClient, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL for %s: %q", cfg.Name, cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultVendorTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Now != nil {
		opts = append([]circuit.Option{circuit.WithClock(deps.Now)}, opts...)
	}
	return &HTTPClient{
		vendor:  cfg.Name,
		baseURL: base,
		client:  &http.Client{Timeout: timeout, Transport: deps.Transport},
		breaker: circuit.New(cfg.Name, opts...),
		metrics: deps.Metrics,
		logger:  logger.With("vendor", cfg.Name),
	}, nil
}

// Breaker exposes the vendor breaker for health reporting.
func (c *HTTPClient) Breaker() *circuit.Breaker { return c.breaker }

// GetJSON issues GET base/path?query and decodes a 2xx body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, path []string, query url.Values, header http.Header, out any) error {
	if !c.breaker.Allow() {
		err := NewProviderError(ErrorProviderOutage, c.vendor, "circuit open, failing fast", nil)
		c.metrics.IncProviderFailure(c.vendor, string(err.Category))
		return err
	}

	start := time.Now()
	err := c.get(ctx, path, query, header, out)
	c.metrics.ObserveProviderLatency(c.vendor, time.Since(start))
	c.observe(ctx, err)
	return err
}

func (c *HTTPClient) get(ctx context.Context, path []string, query url.Values, header http.Header, out any) error {
	u := c.baseURL.JoinPath(path...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return NewProviderError(ErrorInternal, c.vendor, "build request", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return NewProviderError(ErrorTimeout, c.vendor, "request timed out", err)
		}
		return NewProviderError(ErrorProviderOutage, c.vendor, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return NewProviderError(ErrorTimeout, c.vendor, "reading response timed out", err)
		}
		return NewProviderError(ErrorProviderOutage, c.vendor, "read response", err)
	}

	if perr := classifyStatus(c.vendor, resp.StatusCode); perr != nil {
		return perr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewProviderError(ErrorBadData, c.vendor, "malformed response body", err)
	}
	return nil
}

func classifyStatus(vendor string, code int) *ProviderError {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, vendor, fmt.Sprintf("vendor rejected credentials (%d)", code), nil)
	case code == http.StatusNotFound:
		return NewProviderError(ErrorNotFound, vendor, "no HOS data for driver", nil)
	case code == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, vendor, "rate limited", nil)
	case code >= 500:
		return NewProviderError(ErrorProviderOutage, vendor, fmt.Sprintf("vendor error (%d)", code), nil)
	default:
		return NewProviderError(ErrorContractMismatch, vendor, fmt.Sprintf("unexpected status %d", code), nil)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// observe feeds the breaker. Only retryable failures count against the vendor.
func (c *HTTPClient) observe(ctx context.Context, err error) {
	var change circuit.StateChange
	if err == nil {
		_, change = c.breaker.RecordSuccess()
	} else {
		c.metrics.IncProviderFailure(c.vendor, string(GetCategory(err)))
		if !IsRetryable(err) {
			return
		}
		_, change = c.breaker.RecordFailure()
	}
	switch {
	case change.Opened:
		c.metrics.SetBreakerOpen(c.vendor, true)
		c.logger.WarnContext(ctx, "ELD vendor circuit opened", "error", err)
	case change.Closed:
		c.metrics.SetBreakerOpen(c.vendor, false)
		c.logger.InfoContext(ctx, "ELD vendor circuit closed")
	}
}
