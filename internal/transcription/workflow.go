// Package transcription turns an uploaded audio or video file into text.
package transcription

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/gemini"
	"github.com/nikhilbhutani/speakpost/internal/media"
	"github.com/nikhilbhutani/speakpost/internal/storage"
)

const (
	operation = "transcription"

	// NoSpeechSentinel is what the model answers when a file has no speech.
	NoSpeechSentinel = "NO_SPEECH_DETECTED"

	DefaultMaxBytes = 20 << 20

	minTranscriptLength = 10
	unknownFileName     = "Unknown"

	msgCompleted = "Transcription completed successfully"
)

// UploadDescriptor identifies a file stored by the upload service.
type UploadDescriptor struct {
	UserID   string `json:"user_id"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name,omitempty"`
}

// Result is the outcome of a transcription. Data is nil iff Success is false.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *ResultData `json:"data"`
}

type ResultData struct {
	Transcription string   `json:"transcription"`
	UserID        string   `json:"user_id"`
	FileInfo      FileInfo `json:"file_info"`
}

type FileInfo struct {
	FileName string     `json:"file_name"`
	FileSize string     `json:"file_size"`
	MimeType string     `json:"mime_type"`
	Kind     media.Kind `json:"type"`
}

// Fetcher downloads a file by URL.
type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// Invoker calls the generation API.
type Invoker interface {
	Invoke(ctx context.Context, req *gemini.GenerateContentRequest, operation, model string) (*gemini.Response, error)
}

type Workflow struct {
	fetcher  Fetcher
	client   Invoker
	model    string
	maxBytes int64
	log      zerolog.Logger
}

func NewWorkflow(fetcher Fetcher, client Invoker, model string, maxBytes int64, log zerolog.Logger) *Workflow {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Workflow{
		fetcher:  fetcher,
		client:   client,
		model:    model,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "transcription").Logger(),
	}
}

// Transcribe processes the first descriptor in uploads. Failures are reported
// through the Result, never as an error.
func (w *Workflow) Transcribe(ctx context.Context, uploads []UploadDescriptor) Result {
	if err := Validate(uploads); err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	upload := uploads[0]

	data, err := w.transcribe(ctx, upload)
	if err != nil {
		w.log.Error().Err(err).Str("user_id", upload.UserID).Str("file_url", upload.FileURL).
			Msg("transcription failed")
		return Result{Success: false, Message: "Transcription failed: " + gemini.UserMessage(err)}
	}

	w.log.Info().Str("user_id", upload.UserID).Str("file_size", data.FileInfo.FileSize).
		Int("length", len(data.Transcription)).Msg("transcription completed")
	return Result{Success: true, Message: msgCompleted, Data: data}
}

// Validate checks that there is an upload with a file URL.
func Validate(uploads []UploadDescriptor) error {
	if len(uploads) == 0 {
		return ErrNoUploads
	}
	if strings.TrimSpace(uploads[0].FileURL) == "" {
		return ErrNoFileURL
	}
	return nil
}

func (w *Workflow) transcribe(ctx context.Context, upload UploadDescriptor) (*ResultData, error) {
	fileName := upload.FileName
	if fileName == "" {
		fileName = unknownFileName
	}
	class := media.Classify(upload.FileName)
	log := w.log.With().Str("file_name", fileName).Str("mime_type", class.MimeType).Logger()

	raw, err := w.fetcher.Fetch(ctx, upload.FileURL)
	var tooLarge *storage.TooLargeError
	if errors.As(err, &tooLarge) {
		return nil, &FileTooLargeError{Size: tooLarge.Size, Limit: w.maxBytes}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch upload: %w", err)
	}

	size := int64(len(raw))
	if size > w.maxBytes {
		return nil, &FileTooLargeError{Size: size, Limit: w.maxBytes}
	}
	log.Debug().Str("file_size", FormatSize(size)).Msg("file downloaded")

	req := BuildRequest(class, base64.StdEncoding.EncodeToString(raw))

	resp, err := w.client.Invoke(ctx, req, operation, w.model)
	if err != nil {
		return nil, fmt.Errorf("invoke gemini: %w", err)
	}

	text, shape, err := gemini.ExtractTextShape(resp)
	if err != nil {
		return nil, fmt.Errorf("extract transcript: %w", err)
	}
	log.Debug().Str("shape", string(shape)).Msg("transcript extracted")

	transcript, err := Normalize(text)
	if err != nil {
		return nil, err
	}
	if len(transcript) < minTranscriptLength {
		log.Warn().Int("length", len(transcript)).Msg("very short transcription, audio quality may be poor")
	}

	return &ResultData{
		Transcription: transcript,
		UserID:        upload.UserID,
		FileInfo: FileInfo{
			FileName: fileName,
			FileSize: FormatSize(size),
			MimeType: class.MimeType,
			Kind:     class.Kind,
		},
	}, nil
}

// Normalize trims text and rejects empty and no-speech answers.
func Normalize(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyTranscript
	}
	if strings.Contains(strings.ToUpper(trimmed), NoSpeechSentinel) {
		return "", ErrNoSpeechDetected
	}
	return trimmed, nil
}

// FormatSize renders a byte count in mebibytes with two decimals.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2fMB", float64(n)/(1<<20))
}
