package gemini

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// RetryPolicy decides whether a failed attempt is retried and how long to
// wait first. Attempts are numbered from 1.
type RetryPolicy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        time.Duration
}

// DefaultRetryPolicy returns the production policy: up to 6 attempts,
// 1s base doubling per attempt, capped at 30s, with up to 300ms of jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    6,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
		Jitter:        300 * time.Millisecond,
	}
}

// ShouldRetry reports whether a response with statusCode on the given
// attempt warrants another attempt.
func (p RetryPolicy) ShouldRetry(statusCode, attempt int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ShouldRetryOnError reports whether a transport-level failure on the given
// attempt warrants another attempt.
func (p RetryPolicy) ShouldRetryOnError(err error, attempt int) bool {
	return attempt < p.MaxRetries && IsNetworkError(err)
}

// DelayFor returns the wait before the attempt following attempt.
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(p.BaseDelay) * math.Pow(factor, float64(attempt-1))
	if p.Jitter > 0 {
		delay += float64(rand.Int64N(int64(p.Jitter)))
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

var networkMarkers = []string{
	"fetch failed",
	"network error",
	"connection error",
	"connection reset",
	"connection refused",
	"timeout",
	"no such host",
	"econnreset",
	"enotfound",
	"etimedout",
	"aborted",
	"eof",
}

// IsNetworkError reports whether err looks like a transport failure rather
// than a provider decision.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		return true
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ETIMEDOUT):
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
