package transcription

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/speakpost/internal/gemini"
	"github.com/nikhilbhutani/speakpost/internal/media"
	"github.com/nikhilbhutani/speakpost/internal/storage"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, fileURL string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeInvoker struct {
	resp      *gemini.Response
	err       error
	calls     int
	lastReq   *gemini.GenerateContentRequest
	lastOp    string
	lastModel string
}

func (f *fakeInvoker) Invoke(ctx context.Context, req *gemini.GenerateContentRequest, operation, model string) (*gemini.Response, error) {
	f.calls++
	f.lastReq, f.lastOp, f.lastModel = req, operation, model
	return f.resp, f.err
}

func textResponse(text string) *gemini.Response {
	return &gemini.Response{Candidates: []gemini.Candidate{{
		Content: &gemini.CandidateContent{Parts: []gemini.CandidatePart{{Text: text}}},
	}}}
}

func upload() []UploadDescriptor {
	return []UploadDescriptor{{UserID: "user_1", FileURL: "https://files.example/abc", FileName: "Interview.MP3"}}
}

func TestTranscribeSuccess(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("fake-mp3-bytes")}
	invoker := &fakeInvoker{resp: textResponse("  Hello and welcome to the show.  \n")}
	w := NewWorkflow(fetcher, invoker, "gemini-2.0-flash", 0, zerolog.Nop())

	res := w.Transcribe(context.Background(), upload())

	require.True(t, res.Success)
	require.Equal(t, "Transcription completed successfully", res.Message)
	require.NotNil(t, res.Data)
	require.Equal(t, "Hello and welcome to the show.", res.Data.Transcription)
	require.Equal(t, "user_1", res.Data.UserID)
	require.Equal(t, FileInfo{
		FileName: "Interview.MP3",
		FileSize: "0.00MB",
		MimeType: "audio/mpeg",
		Kind:     media.KindAudio,
	}, res.Data.FileInfo)

	require.Equal(t, "transcription", invoker.lastOp)
	require.Equal(t, "gemini-2.0-flash", invoker.lastModel)
	parts := invoker.lastReq.Contents[0].Parts
	require.Len(t, parts, 2)
	require.Equal(t, "audio/mpeg", parts[0].InlineData.MimeType)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("fake-mp3-bytes")), parts[0].InlineData.Data)
	require.Contains(t, parts[1].Text, "from this audio file")
	require.Contains(t, parts[1].Text, `"NO_SPEECH_DETECTED"`)
	require.Equal(t, GenerationConfig, invoker.lastReq.GenerationConfig)
}

func TestTranscribeValidation(t *testing.T) {
	fetcher := &fakeFetcher{}
	invoker := &fakeInvoker{}
	w := NewWorkflow(fetcher, invoker, "", 0, zerolog.Nop())

	res := w.Transcribe(context.Background(), nil)
	require.Equal(t, Result{Success: false, Message: "File upload failed"}, res)

	res = w.Transcribe(context.Background(), []UploadDescriptor{{UserID: "u"}})
	require.Equal(t, Result{Success: false, Message: "No file URL"}, res)

	require.Zero(t, fetcher.calls)
	require.Zero(t, invoker.calls)
	require.True(t, IsInvalidInput(Validate(nil)))
}

func TestTranscribeFileTooLarge(t *testing.T) {
	fetcher := &fakeFetcher{data: make([]byte, 25<<20)}
	invoker := &fakeInvoker{}
	w := NewWorkflow(fetcher, invoker, "", DefaultMaxBytes, zerolog.Nop())

	res := w.Transcribe(context.Background(), upload())

	require.False(t, res.Success)
	require.Nil(t, res.Data)
	require.Contains(t, res.Message, "too large")
	require.Equal(t, "Transcription failed: File too large (25.00MB). Please use files smaller than 20MB.", res.Message)
	require.Zero(t, invoker.calls)
}

func TestTranscribeRejectsOversizedDownload(t *testing.T) {
	fetcher := &fakeFetcher{err: &storage.TooLargeError{URL: "https://files.example/abc", Size: 25 << 20, Limit: DefaultMaxBytes}}
	invoker := &fakeInvoker{}
	w := NewWorkflow(fetcher, invoker, "", DefaultMaxBytes, zerolog.Nop())

	res := w.Transcribe(context.Background(), upload())

	require.False(t, res.Success)
	require.Equal(t, "Transcription failed: File too large (25.00MB). Please use files smaller than 20MB.", res.Message)
	require.Zero(t, invoker.calls)
}

func TestTranscribeNoSpeechDetected(t *testing.T) {
	for _, answer := range []string{"NO_SPEECH_DETECTED", "  no_speech_detected.  "} {
		w := NewWorkflow(&fakeFetcher{data: []byte("x")}, &fakeInvoker{resp: textResponse(answer)}, "", 0, zerolog.Nop())

		res := w.Transcribe(context.Background(), upload())
		require.False(t, res.Success)
		require.Nil(t, res.Data)
		require.Contains(t, res.Message, "No speech detected")
	}
}

func TestTranscribeFailures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		invoker *fakeInvoker
		message string
	}{
		{
			name:    "download",
			fetcher: &fakeFetcher{err: &storage.DownloadError{StatusCode: 404, Status: "Not Found", Attempts: 3}},
			invoker: &fakeInvoker{},
			message: "Transcription failed: Failed to download file: 404 - Not Found",
		},
		{
			name:    "rate limited",
			fetcher: &fakeFetcher{data: []byte("x")},
			invoker: &fakeInvoker{err: &gemini.Error{Kind: gemini.KindRateLimited, Message: "Too many requests. Please wait a moment before trying again."}},
			message: "Transcription failed: Too many requests. Please wait a moment before trying again.",
		},
		{
			name:    "blank candidate",
			fetcher: &fakeFetcher{data: []byte("x")},
			invoker: &fakeInvoker{resp: &gemini.Response{Candidates: []gemini.Candidate{{Text: "  "}, {Text: "second"}}}},
			message: "Transcription failed: " + gemini.UserMessage(&gemini.Error{Kind: gemini.KindMalformedResponse, Message: "Gemini returned a response in an unexpected format. Please try again."}),
		},
		{
			name:    "opaque error",
			fetcher: &fakeFetcher{err: errors.New("disk on fire")},
			invoker: &fakeInvoker{},
			message: "Transcription failed: Something went wrong. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorkflow(tt.fetcher, tt.invoker, "", 0, zerolog.Nop())
			res := w.Transcribe(context.Background(), upload())
			require.False(t, res.Success)
			require.Nil(t, res.Data)
			require.Equal(t, tt.message, res.Message)
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("\n  hi there \t")
	require.NoError(t, err)
	require.Equal(t, "hi there", got)

	_, err = Normalize("   ")
	require.ErrorIs(t, err, ErrEmptyTranscript)

	_, err = Normalize("The answer is: No_Speech_Detected")
	require.ErrorIs(t, err, ErrNoSpeechDetected)
}

func TestInstructionsUseVideoForUnknownKinds(t *testing.T) {
	require.Contains(t, Instructions(media.KindVideo), "from this video file")
	require.Contains(t, Instructions(media.KindUnknown), "from this video file")
	require.Contains(t, Instructions(media.KindAudio), "from this audio file")
}

// Exercises the real client and fetcher against local servers.
func TestTranscribeEndToEnd(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(w, bytes.NewReader([]byte("RIFF....WAVEfmt")))
	}))
	defer files.Close()

	var calls int
	var gotMime string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req gemini.GenerateContentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 && req.Contents[0].Parts[0].InlineData != nil {
			gotMime = req.Contents[0].Parts[0].InlineData.MimeType
		}
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Speaker 1: Good morning everyone."}]}}]}`)
	}))
	defer api.Close()

	var delays []time.Duration
	client := gemini.New(gemini.Config{
		APIKey:  "k",
		BaseURL: api.URL,
		Policy:  gemini.RetryPolicy{MaxRetries: 6, BaseDelay: time.Second, MaxDelay: 30 * time.Second, BackoffFactor: 2},
	}, gemini.WithSleep(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))

	w := NewWorkflow(storage.NewFetcher(), client, "", 0, zerolog.Nop())
	res := w.Transcribe(context.Background(), []UploadDescriptor{{UserID: "u", FileURL: files.URL + "/memo.wav", FileName: "memo.wav"}})

	require.True(t, res.Success, res.Message)
	require.Equal(t, "Speaker 1: Good morning everyone.", res.Data.Transcription)
	require.Equal(t, "audio/wav", gotMime)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}
