package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestFetchSucceedsFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "audio-bytes")
	}))
	defer srv.Close()

	rec := &recorder{}
	data, err := NewFetcher(WithSleep(rec.sleep)).Fetch(context.Background(), srv.URL+"/f.mp3")
	require.NoError(t, err)
	require.Equal(t, []byte("audio-bytes"), data)
	require.Empty(t, rec.delays)
}

func TestFetchRetriesWithLinearBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	rec := &recorder{}
	data, err := NewFetcher(WithSleep(rec.sleep)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", string(data))
	require.EqualValues(t, 3, hits.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestFetchFailsAfterAllAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rec := &recorder{}
	_, err := NewFetcher(WithSleep(rec.sleep)).Fetch(context.Background(), srv.URL)

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	require.Equal(t, http.StatusNotFound, dlErr.StatusCode)
	require.Equal(t, 3, dlErr.Attempts)
	require.Equal(t, "Failed to download file: 404 - Not Found", dlErr.UserMessage())
	require.EqualValues(t, 3, hits.Load())
	require.Len(t, rec.delays, 2)
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &recorder{}
	_, err := NewFetcher(WithSleep(rec.sleep), WithAttempts(2)).Fetch(context.Background(), url)

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	require.Zero(t, dlErr.StatusCode)
	require.Error(t, dlErr.Err)
	require.Equal(t, "Failed to download file. Please try again.", dlErr.UserMessage())
	require.Len(t, rec.delays, 1)
}

func TestFetchStopsOnCancelledSleep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := NewFetcher(WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, err := f.Fetch(ctx, srv.URL)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantSize int64
	}{
		{
			name: "declared length",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, strings.Repeat("a", 32))
			},
			wantSize: 32,
		},
		{
			name: "streamed without length",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, strings.Repeat("a", 10))
				w.(http.Flusher).Flush()
				_, _ = io.WriteString(w, strings.Repeat("a", 22))
			},
			wantSize: 17,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			rec := &recorder{}
			_, err := NewFetcher(WithSleep(rec.sleep), WithMaxBytes(16)).Fetch(context.Background(), srv.URL)

			var tooLarge *TooLargeError
			require.ErrorAs(t, err, &tooLarge)
			require.Equal(t, tt.wantSize, tooLarge.Size)
			require.EqualValues(t, 16, tooLarge.Limit)
			require.EqualValues(t, 1, hits.Load())
			require.Empty(t, rec.delays)
		})
	}
}

func TestFetchAcceptsBodyAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("a", 16))
	}))
	defer srv.Close()

	data, err := NewFetcher(WithMaxBytes(16)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, data, 16)
}
