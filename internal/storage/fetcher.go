// Package storage downloads uploaded files from the external upload service.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = time.Second
)

// DownloadError is returned when a file could not be fetched after all
// attempts.
type DownloadError struct {
	URL        string
	StatusCode int
	Status     string
	Attempts   int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d after %d attempts", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("download %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) UserMessage() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Failed to download file: %d - %s", e.StatusCode, e.Status)
	}
	return "Failed to download file. Please try again."
}

// TooLargeError rejects a download above the configured limit. Size is the
// declared Content-Length, or limit+1 when the body was streamed without one.
type TooLargeError struct {
	URL   string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("download %s: %d bytes exceeds limit of %d", e.URL, e.Size, e.Limit)
}

// Fetcher retrieves file bytes by URL with a small linear backoff between
// attempts.
type Fetcher struct {
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
	maxBytes   int64
	sleep      func(ctx context.Context, d time.Duration) error
	log        zerolog.Logger
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = hc }
}

func WithAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

func WithBackoff(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.backoff = d }
}

// WithMaxBytes caps the body size. Zero means no cap.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) { f.sleep = fn }
}

func WithLogger(l zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = l.With().Str("component", "storage").Logger() }
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		attempts:   DefaultAttempts,
		backoff:    DefaultBackoff,
		sleep:      sleepContext,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads fileURL. Attempt n is followed by a wait of n times the
// backoff before the next one.
func (f *Fetcher) Fetch(ctx context.Context, fileURL string) ([]byte, error) {
	dlErr := &DownloadError{URL: fileURL}

	for attempt := 1; attempt <= f.attempts; attempt++ {
		dlErr.Attempts = attempt

		data, status, err := f.get(ctx, fileURL)
		if err == nil && status >= 200 && status < 300 {
			f.log.Debug().Int("attempt", attempt).Int("bytes", len(data)).Msg("file downloaded")
			return data, nil
		}
		var tooLarge *TooLargeError
		if errors.As(err, &tooLarge) {
			f.log.Warn().Int64("size", tooLarge.Size).Int64("limit", tooLarge.Limit).Msg("download rejected")
			return nil, tooLarge
		}

		dlErr.Err = err
		dlErr.StatusCode = status
		dlErr.Status = http.StatusText(status)

		if attempt == f.attempts || ctx.Err() != nil {
			break
		}

		delay := f.backoff * time.Duration(attempt)
		f.log.Warn().Err(err).Int("attempt", attempt).Int("status", status).Dur("delay", delay).
			Msg("download attempt failed, retrying")
		if err := f.sleep(ctx, delay); err != nil {
			dlErr.Err = err
			break
		}
	}

	f.log.Error().Err(dlErr.Err).Int("status", dlErr.StatusCode).Int("attempts", dlErr.Attempts).
		Msg("download failed")
	return nil, dlErr
}

func (f *Fetcher) get(ctx context.Context, fileURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	if f.maxBytes <= 0 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("read download body: %w", err)
		}
		return data, resp.StatusCode, nil
	}

	if resp.ContentLength > f.maxBytes {
		return nil, resp.StatusCode, &TooLargeError{URL: fileURL, Size: resp.ContentLength, Limit: f.maxBytes}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, 0, fmt.Errorf("read download body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, resp.StatusCode, &TooLargeError{URL: fileURL, Size: int64(len(data)), Limit: f.maxBytes}
	}
	return data, resp.StatusCode, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
