package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cart-enricher/internal/circuitbreaker"
	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveRequest(upstream, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, upstream+":"+outcome)
}

func TestDefaultClientConfig(t *testing.T) {
	config := DefaultClientConfig()

	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, 100, config.MaxIdleConns)
	assert.Equal(t, 32, config.MaxIdleConnsPerHost)
	assert.False(t, config.DisableKeepAlives)
	assert.Nil(t, config.Transport)
}

func TestClientOptions(t *testing.T) {
	transport := &http.Transport{}
	client := NewHTTPClient(
		WithTimeout(2*time.Second),
		WithMaxIdleConnsPerHost(4),
		WithoutKeepAlives(),
		WithTransport(transport),
	)

	assert.Equal(t, 2*time.Second, client.Timeout)
	assert.Same(t, transport, client.Transport)

	defaultClient := NewHTTPClient(WithMaxIdleConnsPerHost(4), WithoutKeepAlives())
	tr, ok := defaultClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 4, tr.MaxIdleConnsPerHost)
	assert.True(t, tr.DisableKeepAlives)
}

func TestGetJSON_Success(t *testing.T) {
	var (
		mu       sync.Mutex
		gotQuery url.Values
		gotAgent string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotQuery = r.URL.Query()
		gotAgent = r.Header.Get("User-Agent")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"category":"smartphones"}`))
	}))
	defer server.Close()

	observer := &recordingObserver{}
	wrapper := NewHTTPClientWrapper("products", server.Client(), logging.NewNopLogger()).
		WithHeader("User-Agent", "cart-enricher/test").
		WithObserver(observer)

	var out struct {
		Category string `json:"category"`
	}
	err := wrapper.GetJSON(context.Background(), server.URL+"/products/1", url.Values{"select": {"category"}}, &out)
	require.NoError(t, err)

	assert.Equal(t, "smartphones", out.Category)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "category", gotQuery.Get("select"))
	assert.Equal(t, "cart-enricher/test", gotAgent)
	assert.Equal(t, []string{"products:success"}, observer.outcomes)
	assert.Equal(t, "products", wrapper.Name())
}

func TestGetJSON_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    errors.ErrorType
		wantTimeout bool
		wantStatus  int
		wantOutcome string
	}{
		{"not found", http.StatusNotFound, `{"message":"nope"}`, errors.ErrTypeUpstreamRejected, false, 404, OutcomeRejected},
		{"server error", http.StatusInternalServerError, ``, errors.ErrTypeUpstreamRejected, false, 500, OutcomeRejected},
		{"gateway timeout", http.StatusGatewayTimeout, ``, errors.ErrTypeUpstreamUnavailable, true, 504, OutcomeTimeout},
		{"request timeout", http.StatusRequestTimeout, ``, errors.ErrTypeUpstreamUnavailable, true, 408, OutcomeTimeout},
		{"malformed body", http.StatusOK, `{"category":`, errors.ErrTypeUpstreamRejected, false, 200, OutcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			observer := &recordingObserver{}
			wrapper := NewHTTPClientWrapper("carts", server.Client(), logging.NewNopLogger()).WithObserver(observer)

			var out map[string]interface{}
			err := wrapper.GetJSON(context.Background(), server.URL, nil, &out)
			require.Error(t, err)

			assert.Equal(t, tt.wantType, errors.GetType(err))
			assert.Equal(t, tt.wantTimeout, errors.IsTimeout(err))
			assert.Equal(t, tt.wantStatus, errors.StatusCode(err))
			assert.Equal(t, []string{"carts:" + tt.wantOutcome}, observer.outcomes)
		})
	}
}

func TestGetJSON_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	wrapper := NewHTTPClientWrapper("users", NewHTTPClient(WithTimeout(time.Second)), logging.NewNopLogger())

	err := wrapper.GetJSON(context.Background(), target, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamUnavailable))
	assert.False(t, errors.IsTimeout(err))
}

func TestGetJSON_ClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	wrapper := NewHTTPClientWrapper("geocoder", NewHTTPClient(WithTimeout(20*time.Millisecond)), logging.NewNopLogger())

	err := wrapper.GetJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
}

func TestGetJSON_CallerCancellationIsNotTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	wrapper := NewHTTPClientWrapper("carts", server.Client(), logging.NewNopLogger())
	err := wrapper.GetJSON(ctx, server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamUnavailable))
	assert.False(t, errors.IsTimeout(err))
}

func TestGetJSON_InvalidURL(t *testing.T) {
	wrapper := NewHTTPClientWrapper("users", nil, logging.NewNopLogger())

	err := wrapper.GetJSON(context.Background(), "not-a-url", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestGetJSON_CircuitBreaker(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	breaker := circuitbreaker.New("carts", circuitbreaker.Config{
		MaxFailures: 2,
		Cooldown:    time.Minute,
		Probes:      1,
	}, logging.NewNopLogger())

	wrapper := NewHTTPClientWrapper("carts", server.Client(), logging.NewNopLogger()).WithCircuitBreaker(breaker)

	for i := 0; i < 2; i++ {
		err := wrapper.GetJSON(context.Background(), server.URL, nil, nil)
		assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamRejected))
	}

	err := wrapper.GetJSON(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetJSON_RateLimiterCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	limiter, err := ratelimit.NewBucketLimiter(ratelimit.Config{PerSecond: 1, Burst: 1})
	require.NoError(t, err)

	wrapper := NewHTTPClientWrapper("geocoder", server.Client(), logging.NewNopLogger()).WithRateLimiter(limiter)

	require.NoError(t, wrapper.GetJSON(context.Background(), server.URL, nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = wrapper.GetJSON(ctx, server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamUnavailable))
}
