package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RetryPolicy is a fixed-interval, capped retry policy.
type RetryPolicy struct {
	// Interval is the wait between attempts.
	Interval time.Duration
	// MaxAttempts caps the total number of attempts, including the first.
	MaxAttempts int
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: 2 * time.Second, MaxAttempts: 3}
}

// RetryTransport decorates an http.RoundTripper with RetryPolicy. Network
// errors, 429 and 5xx responses are retried; everything else is returned
// as-is. Only the transport is retried, never the caller's logic.
type RetryTransport struct {
	Base   http.RoundTripper
	Policy RetryPolicy
}

// NewRetryTransport wraps base (http.DefaultTransport when nil).
func NewRetryTransport(base http.RoundTripper, policy RetryPolicy) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{Base: base, Policy: policy}
}

// NewHTTPClient returns an http.Client whose transport retries per policy.
func NewHTTPClient(policy RetryPolicy) *http.Client {
	return &http.Client{
		Transport: NewRetryTransport(nil, policy),
		Timeout:   60 * time.Second,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	maxAttempts := t.Policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		r := req
		if attempt > 1 && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return nil, errors.New("cannot retry request: body is not replayable")
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r = req.Clone(ctx)
			r.Body = body
		}

		resp, err := t.Base.RoundTrip(r)
		if !shouldRetry(ctx, resp, err) || attempt >= maxAttempts {
			return resp, err
		}

		attrs := []any{"attempt", attempt, "max_attempts", maxAttempts, "delay", t.Policy.Interval, "url", req.URL.Redacted()}
		if err != nil {
			attrs = append(attrs, "error", err)
		} else {
			attrs = append(attrs, "status", resp.StatusCode)
			io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
		}
		slog.Warn("retrying request", attrs...)

		if err := Sleep(ctx, t.Policy.Interval); err != nil {
			return nil, err
		}
	}
}

func shouldRetry(ctx context.Context, resp *http.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}
