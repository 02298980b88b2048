package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/projectenv/tools-index/internal/telemetry"
)

const (
	// DefaultMaxAttempts is the number of times a request is sent before giving up
	DefaultMaxAttempts = 3

	// DefaultRetryWait is the fixed delay between two attempts
	DefaultRetryWait = 2 * time.Second

	// DefaultPermits is the number of requests admitted per host and window
	DefaultPermits = 50

	// DefaultWindow is the rate limiting window
	DefaultWindow = time.Second

	// DefaultPermitTimeout bounds how long a request waits for a rate limit permit
	DefaultPermitTimeout = time.Minute

	// DefaultResponseHeaderTimeout bounds how long a single attempt waits for response headers
	DefaultResponseHeaderTimeout = time.Minute
)

// ErrRateLimitTimeout is returned when no permit could be acquired within the permit timeout.
var ErrRateLimitTimeout = errors.New("timed out waiting for rate limit permit")

// serverError marks a 5xx response as retryable.
type serverError struct {
	statusCode int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server responded with status %d", e.statusCode)
}

// Transport is an http.RoundTripper that retries failed attempts and rate limits
// requests per destination host.
//
// Transport errors and 5xx responses are retried with a constant wait. Once attempts are
// exhausted the last 5xx response is returned to the caller as is. Other statuses are
// never retried. Each attempt consumes a permit from the limiter of the request's host.
// Permits are handed out at most once every window/permits, so any window admits at
// most permits attempts. Limiters are created on first use and kept for the lifetime
// of the Transport.
//
// A single Transport is meant to be shared by every component of a run so limits hold
// per host rather than per caller.
type Transport struct {
	base          http.RoundTripper
	maxAttempts   int
	retryWait     time.Duration
	permits       int
	window        time.Duration
	permitTimeout time.Duration
	metrics       *telemetry.TransportMetrics

	limiters sync.Map // host -> *rate.Limiter
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithBase sets the round tripper that performs the actual requests
func WithBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = base
	}
}

// WithMaxAttempts sets how many times a request is sent before giving up
func WithMaxAttempts(n int) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithRetryWait sets the delay between attempts
func WithRetryWait(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d >= 0 {
			t.retryWait = d
		}
	}
}

// WithRateLimit admits permits requests per window for each host
func WithRateLimit(permits int, window time.Duration) TransportOption {
	return func(t *Transport) {
		if permits > 0 && window > 0 {
			t.permits = permits
			t.window = window
		}
	}
}

// WithPermitTimeout bounds the wait for a rate limit permit
func WithPermitTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.permitTimeout = d
		}
	}
}

// WithMetrics records retries and rate limit waits
func WithMetrics(m *telemetry.TransportMetrics) TransportOption {
	return func(t *Transport) {
		t.metrics = m
	}
}

// NewTransport creates a Transport. Without WithBase it uses a clone of
// http.DefaultTransport with DefaultResponseHeaderTimeout applied.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		maxAttempts:   DefaultMaxAttempts,
		retryWait:     DefaultRetryWait,
		permits:       DefaultPermits,
		window:        DefaultWindow,
		permitTimeout: DefaultPermitTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.base == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
		t.base = base
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	host := req.URL.Host
	limiter := t.limiter(host)

	// A body without GetBody cannot be replayed.
	maxAttempts := t.maxAttempts
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		maxAttempts = 1
	}

	var (
		attempt int
		pending *http.Response
	)
	operation := func() (*http.Response, error) {
		attempt++
		discard(pending)
		pending = nil

		if err := t.acquire(ctx, limiter, host); err != nil {
			return nil, backoff.Permanent(err)
		}

		attemptReq, err := cloneRequest(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		resp, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			pending = resp
			return resp, &serverError{statusCode: resp.StatusCode}
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(t.retryWait)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Debug("Retrying request",
				"method", req.Method,
				"url", req.URL.Redacted(),
				"attempt", attempt,
				"wait", wait,
				"error", err)
			t.metrics.RecordRetry(ctx, host)
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	var srvErr *serverError
	switch {
	case err == nil:
		return resp, nil
	case errors.As(err, &srvErr) && pending != nil:
		slog.Debug("Giving up after server errors",
			"url", req.URL.Redacted(),
			"attempts", attempt,
			"status", srvErr.statusCode)
		return pending, nil
	default:
		discard(pending)
		return nil, err
	}
}

// acquire waits for a permit of the host's limiter, bounded by the permit timeout.
func (t *Transport) acquire(ctx context.Context, limiter *rate.Limiter, host string) error {
	if limiter.Allow() {
		return nil
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, t.permitTimeout)
	defer cancel()

	err := limiter.Wait(waitCtx)
	t.metrics.RecordRateLimitWait(ctx, host, time.Since(start))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w for host %s after %s", ErrRateLimitTimeout, host, t.permitTimeout)
}

// limiter returns the limiter of host, creating it on first use.
func (t *Transport) limiter(host string) *rate.Limiter {
	if l, ok := t.limiters.Load(host); ok {
		return l.(*rate.Limiter)
	}
	// Admissions are spaced evenly with no burst so no window holds more than permits.
	interval := (t.window + time.Duration(t.permits) - 1) / time.Duration(t.permits)
	l, _ := t.limiters.LoadOrStore(host, rate.NewLimiter(rate.Every(interval), 1))
	return l.(*rate.Limiter)
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		clone.Body = body
	}
	return clone, nil
}

func discard(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
