package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"cart-enricher/internal/circuitbreaker"
	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/ratelimit"
)

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DisableKeepAlives   bool
	Transport           http.RoundTripper
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithMaxIdleConnsPerHost sets the maximum number of idle connections per host
func WithMaxIdleConnsPerHost(max int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxIdleConnsPerHost = max
	}
}

// WithoutKeepAlives disables keep-alives
func WithoutKeepAlives() ClientOption {
	return func(c *ClientConfig) {
		c.DisableKeepAlives = true
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates a new HTTP client with the given options. The
// returned client is meant to be shared by every upstream wrapper.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			DisableKeepAlives:   cfg.DisableKeepAlives,
		}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// Request outcomes reported to an Observer
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeTimeout     = "timeout"
)

// Observer receives one callback per upstream request attempt
type Observer interface {
	ObserveRequest(upstream, outcome string, duration time.Duration)
}

// HTTPClientWrapper issues JSON GETs against one named upstream and maps
// failures onto the upstream error taxonomy.
type HTTPClientWrapper struct {
	name           string
	client         *http.Client
	circuitBreaker *circuitbreaker.Breaker
	rateLimiter    ratelimit.Limiter
	observer       Observer
	headers        map[string]string
	logger         logging.Logger
}

// NewHTTPClientWrapper wraps client for the upstream called name
func NewHTTPClientWrapper(name string, client *http.Client, logger logging.Logger) *HTTPClientWrapper {
	if client == nil {
		client = NewHTTPClient()
	}

	return &HTTPClientWrapper{
		name:    name,
		client:  client,
		headers: map[string]string{"Accept": "application/json"},
		logger:  logging.ForComponent(logger, "http").WithFields(logging.String("upstream", name)),
	}
}

// WithCircuitBreaker adds circuit breaker integration
func (w *HTTPClientWrapper) WithCircuitBreaker(breaker *circuitbreaker.Breaker) *HTTPClientWrapper {
	w.circuitBreaker = breaker
	return w
}

// WithRateLimiter throttles requests on the limiter key named after the upstream
func (w *HTTPClientWrapper) WithRateLimiter(limiter ratelimit.Limiter) *HTTPClientWrapper {
	w.rateLimiter = limiter
	return w
}

// WithObserver reports every request to o
func (w *HTTPClientWrapper) WithObserver(o Observer) *HTTPClientWrapper {
	w.observer = o
	return w
}

// WithHeader sets a header sent on every request
func (w *HTTPClientWrapper) WithHeader(key, value string) *HTTPClientWrapper {
	w.headers[key] = value
	return w
}

// Name returns the upstream name
func (w *HTTPClientWrapper) Name() string {
	return w.name
}

// GetJSON fetches rawURL with query appended and decodes the body into out.
//
// Errors:
//   - transport failures (refused, DNS, reset) are UpstreamUnavailable
//   - client timeouts, 408 and 504 are UpstreamUnavailable with code "timeout"
//   - any other non-2xx status, or an undecodable 2xx body, is UpstreamRejected
func (w *HTTPClientWrapper) GetJSON(ctx context.Context, rawURL string, query url.Values, out interface{}) error {
	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx, w.name); err != nil {
			unavailable := errors.UpstreamUnavailable(fmt.Sprintf("%s: rate limit wait aborted", w.name), errors.RateLimitError(w.name, err))
			if ctx.Err() == context.DeadlineExceeded {
				unavailable.WithCode(errors.CodeTimeout)
			}
			return unavailable
		}
	}

	target, err := buildURL(rawURL, query)
	if err != nil {
		return errors.ValidationError(fmt.Sprintf("%s: invalid url %q: %v", w.name, rawURL, err))
	}

	start := time.Now()
	var reqErr error
	if w.circuitBreaker != nil {
		reqErr = w.circuitBreaker.Execute(ctx, func() error {
			return w.do(ctx, target, out)
		})
	} else {
		reqErr = w.do(ctx, target, out)
	}

	w.observe(reqErr, time.Since(start))

	if reqErr != nil {
		w.logger.Debug("Upstream request failed",
			logging.String("url", target),
			logging.String("error_type", string(errors.GetType(reqErr))),
			logging.Err(reqErr),
		)
	}

	return reqErr
}

func (w *HTTPClientWrapper) do(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.InternalError(fmt.Sprintf("%s: failed to create request", w.name), err)
	}

	for key, value := range w.headers {
		req.Header.Set(key, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		unavailable := errors.UpstreamUnavailable(fmt.Sprintf("%s request failed", w.name), err)
		if isTimeout(ctx, err) {
			unavailable.WithCode(errors.CodeTimeout)
		}
		return unavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout {
		drain(resp.Body)
		unavailable := errors.UpstreamUnavailable(fmt.Sprintf("%s timed out: HTTP %d", w.name, resp.StatusCode), nil).
			WithCode(errors.CodeTimeout)
		unavailable.StatusCode = resp.StatusCode
		return unavailable
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		drain(resp.Body)
		return errors.UpstreamRejected(resp.StatusCode, fmt.Sprintf("%s rejected request: HTTP %d", w.name, resp.StatusCode)).
			WithContext("body", string(snippet))
	}

	if out == nil {
		drain(resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return errors.UpstreamUnavailable(fmt.Sprintf("%s body read timed out", w.name), err).WithCode(errors.CodeTimeout)
		}
		rejected := errors.UpstreamRejected(resp.StatusCode, fmt.Sprintf("%s returned a malformed body", w.name))
		rejected.Cause = err
		return rejected
	}

	return nil
}

func (w *HTTPClientWrapper) observe(err error, d time.Duration) {
	if w.observer == nil {
		return
	}

	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errors.IsTimeout(err):
		outcome = OutcomeTimeout
	case errors.IsType(err, errors.ErrTypeUpstreamRejected):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeUnavailable
	}

	w.observer.ObserveRequest(w.name, outcome, d)
}

// isTimeout reports whether err came from a deadline rather than a refusal.
// Caller cancellation is not a timeout.
func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func buildURL(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host")
	}
	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
}
