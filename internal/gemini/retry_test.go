package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldRetry(t *testing.T) {
	p := DefaultRetryPolicy()

	for _, status := range []int{429, 500, 502, 503, 504} {
		require.True(t, p.ShouldRetry(status, 1), status)
		require.True(t, p.ShouldRetry(status, 5), status)
		require.False(t, p.ShouldRetry(status, 6), status)
	}
	for _, status := range []int{200, 400, 401, 403, 404, 418} {
		require.False(t, p.ShouldRetry(status, 1), status)
	}

	single := RetryPolicy{MaxRetries: 1}
	require.False(t, single.ShouldRetry(503, 1))
}

func TestShouldRetryOnError(t *testing.T) {
	p := DefaultRetryPolicy()
	netErr := errors.New("read tcp: connection reset by peer")

	require.True(t, p.ShouldRetryOnError(netErr, 1))
	require.False(t, p.ShouldRetryOnError(netErr, 6))
	require.False(t, p.ShouldRetryOnError(errors.New("invalid character in JSON"), 1))
}

func TestIsNetworkError(t *testing.T) {
	retryable := []error{
		&url.Error{Op: "Post", URL: "http://x", Err: errors.New("boom")},
		context.DeadlineExceeded,
		fmt.Errorf("read: %w", io.ErrUnexpectedEOF),
		fmt.Errorf("dial: %w", syscall.ECONNREFUSED),
		syscall.ECONNRESET,
		errors.New("fetch failed"),
		errors.New("Network Error while talking to upstream"),
		errors.New("request TIMEOUT"),
		errors.New("getaddrinfo ENOTFOUND example.com"),
		errors.New("operation was aborted"),
	}
	for _, err := range retryable {
		require.True(t, IsNetworkError(err), err.Error())
	}

	require.False(t, IsNetworkError(nil))
	require.False(t, IsNetworkError(errors.New("permission denied")))
	require.False(t, IsNetworkError(statusError(401, "")))
}

func TestDelayForGrowsAndCaps(t *testing.T) {
	p := DefaultRetryPolicy()
	p.Jitter = 0

	require.Equal(t, time.Second, p.DelayFor(1))
	require.Equal(t, 2*time.Second, p.DelayFor(2))
	require.Equal(t, 4*time.Second, p.DelayFor(3))
	require.Equal(t, 16*time.Second, p.DelayFor(5))
	require.Equal(t, 30*time.Second, p.DelayFor(6))
	require.Equal(t, 30*time.Second, p.DelayFor(20))
}

func TestDelayForJitterStaysInBoundsAndMonotonic(t *testing.T) {
	p := DefaultRetryPolicy()

	for i := 0; i < 200; i++ {
		prev := time.Duration(0)
		for attempt := 1; attempt <= 8; attempt++ {
			d := p.DelayFor(attempt)
			require.LessOrEqual(t, d, p.MaxDelay)
			require.GreaterOrEqual(t, d, prev)
			prev = d
		}
		first := p.DelayFor(1)
		require.GreaterOrEqual(t, first, time.Second)
		require.Less(t, first, time.Second+300*time.Millisecond)
	}
}
