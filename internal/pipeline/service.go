// Package pipeline runs transcript-to-post generation and the full
// upload-to-post flow used by the worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/blog"
	"github.com/nikhilbhutani/speakpost/internal/gemini"
	"github.com/nikhilbhutani/speakpost/internal/posts"
	"github.com/nikhilbhutani/speakpost/internal/transcription"
)

const (
	msgNoTranscript     = "No transcription text provided"
	msgCreated          = "Blog post created successfully"
	priorPostsSeparator = "\n\n"
)

var (
	ErrNoTranscript        = errors.New("no transcription text provided")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// Outcome is the result of a generation run. On success PostID names the
// post to navigate to; otherwise Err is set and Message is user-facing.
type Outcome struct {
	PostID  uuid.UUID
	Title   string
	Message string
	Err     error
}

func (o Outcome) Succeeded() bool { return o.Err == nil }

type Transcriber interface {
	Transcribe(ctx context.Context, uploads []transcription.UploadDescriptor) transcription.Result
}

type Writer interface {
	Generate(ctx context.Context, transcript, priorPosts string) (string, error)
}

// PostStore is the persistence the pipeline needs.
type PostStore interface {
	RecentPosts(ctx context.Context, userID string, limit int) ([]string, error)
	SavePost(ctx context.Context, userID, title, content string) (uuid.UUID, error)
}

type Service struct {
	transcriber Transcriber
	writer      Writer
	posts       PostStore
	log         zerolog.Logger
}

func NewService(transcriber Transcriber, writer Writer, store PostStore, log zerolog.Logger) *Service {
	return &Service{
		transcriber: transcriber,
		writer:      writer,
		posts:       store,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// Transcribe delegates to the transcription workflow.
func (s *Service) Transcribe(ctx context.Context, uploads []transcription.UploadDescriptor) transcription.Result {
	return s.transcriber.Transcribe(ctx, uploads)
}

// GeneratePost writes a post from transcript in the style of the user's
// recent posts and saves it. The save is attempted once.
func (s *Service) GeneratePost(ctx context.Context, userID, transcript string) Outcome {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Outcome{Message: msgNoTranscript, Err: ErrNoTranscript}
	}
	log := s.log.With().Str("user_id", userID).Logger()

	recent, err := s.posts.RecentPosts(ctx, userID, posts.RecentLimit)
	if err != nil {
		return s.failed(log, fmt.Errorf("load recent posts: %w", err))
	}

	markdown, err := s.writer.Generate(ctx, transcript, strings.Join(recent, priorPostsSeparator))
	if err != nil {
		return s.failed(log, err)
	}

	title := blog.Title(markdown)
	id, err := s.posts.SavePost(ctx, userID, title, markdown)
	if err != nil {
		return s.failed(log, fmt.Errorf("save post: %w", err))
	}

	log.Info().Str("post_id", id.String()).Str("title", title).Msg("blog post created")
	return Outcome{PostID: id, Title: title, Message: msgCreated}
}

// Process runs the whole flow for one upload.
func (s *Service) Process(ctx context.Context, upload transcription.UploadDescriptor) Outcome {
	res := s.transcriber.Transcribe(ctx, []transcription.UploadDescriptor{upload})
	if !res.Success {
		return Outcome{Message: res.Message, Err: fmt.Errorf("%w: %s", ErrTranscriptionFailed, res.Message)}
	}
	return s.GeneratePost(ctx, upload.UserID, res.Data.Transcription)
}

func (s *Service) failed(log zerolog.Logger, err error) Outcome {
	log.Error().Err(err).Msg("blog generation failed")
	return Outcome{Message: "Blog generation failed: " + gemini.UserMessage(err), Err: err}
}
