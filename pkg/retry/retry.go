// Package retry runs calls against flaky upstreams with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls retry behavior.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// Default is suitable for most upstream HTTP calls.
var Default = Config{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// Retryable marks an error as transient regardless of its type.
type Retryable interface {
	Temporary() bool
}

// Do retries fn up to MaxRetries times with exponential backoff.
// Non-retryable errors and context cancellation return immediately.
func Do[T any](ctx context.Context, rc Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt < rc.MaxRetries {
			wait := Backoff(rc, attempt)
			log.Debug().Int("attempt", attempt+1).Dur("wait", wait).Err(err).Msg("retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// HTTP executes a request function with retry logic, treating retryable
// status codes as transient failures.
func HTTP(ctx context.Context, rc Config, fn func() (*http.Response, error)) (*http.Response, error) {
	return Do(ctx, rc, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if IsRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

// Backoff returns the wait before retry number attempt+1.
func Backoff(rc Config, attempt int) time.Duration {
	wait := time.Duration(float64(rc.InitialWait) * math.Pow(rc.Multiplier, float64(attempt)))
	if wait > rc.MaxWait {
		wait = rc.MaxWait
	}
	return wait
}

// StatusError wraps a retryable HTTP status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

// IsRetryable returns true for transient errors worth retrying.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var tmp Retryable
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}

	return false
}

// IsRetryableStatus returns true for HTTP status codes worth retrying.
func IsRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
