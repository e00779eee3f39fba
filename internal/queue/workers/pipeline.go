package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/models"
	"github.com/nikhilbhutani/speakpost/internal/pipeline"
	"github.com/nikhilbhutani/speakpost/internal/queue"
	"github.com/nikhilbhutani/speakpost/internal/transcription"
)

// Processor runs the upload-to-post flow.
type Processor interface {
	Process(ctx context.Context, upload transcription.UploadDescriptor) pipeline.Outcome
}

// StatusUpdater records job progress.
type StatusUpdater interface {
	Transition(ctx context.Context, id uuid.UUID, state, message string, postID *uuid.UUID) error
}

type PipelineWorker struct {
	processor Processor
	jobs      StatusUpdater
}

func NewPipelineWorker(processor Processor, jobs StatusUpdater) *PipelineWorker {
	return &PipelineWorker{processor: processor, jobs: jobs}
}

// ProcessTask handles queue.TypeUploadProcess. A failed outcome is recorded
// on the job and is not returned as an error, so the queue never reruns a
// flow that may already have saved a post.
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.UploadProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job ID: %v: %w", err, asynq.SkipRetry)
	}

	log := zerolog.Ctx(ctx).With().Str("job_id", jobID.String()).Str("user_id", payload.UserID).Logger()
	log.Info().Str("file_url", payload.FileURL).Msg("processing upload")

	if err := w.jobs.Transition(ctx, jobID, models.JobStateRunning, "", nil); err != nil {
		log.Warn().Err(err).Msg("mark job running")
	}

	outcome := w.processor.Process(ctx, transcription.UploadDescriptor{
		UserID:   payload.UserID,
		FileURL:  payload.FileURL,
		FileName: payload.FileName,
	})

	if !outcome.Succeeded() {
		log.Error().Err(outcome.Err).Msg("upload processing failed")
		if err := w.jobs.Transition(ctx, jobID, models.JobStateFailed, outcome.Message, nil); err != nil {
			return fmt.Errorf("mark job failed: %w", err)
		}
		return nil
	}

	postID := outcome.PostID
	if err := w.jobs.Transition(ctx, jobID, models.JobStateSucceeded, outcome.Message, &postID); err != nil {
		return fmt.Errorf("mark job succeeded: %w", err)
	}

	log.Info().Str("post_id", postID.String()).Msg("upload processed")
	return nil
}
