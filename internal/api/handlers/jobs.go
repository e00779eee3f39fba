package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/api/middleware"
	"github.com/nikhilbhutani/speakpost/internal/models"
	"github.com/nikhilbhutani/speakpost/internal/queue"
)

// Enqueuer schedules upload processing.
type Enqueuer interface {
	EnqueueUploadProcess(ctx context.Context, payload queue.UploadProcessPayload) error
}

// JobStore records job statuses.
type JobStore interface {
	Create(ctx context.Context, userID string) (models.JobStatus, error)
	Get(ctx context.Context, id uuid.UUID) (models.JobStatus, error)
	Transition(ctx context.Context, id uuid.UUID, state, message string, postID *uuid.UUID) error
}

type JobHandler struct {
	queue Enqueuer
	jobs  JobStore
}

func NewJobHandler(q Enqueuer, jobs JobStore) *JobHandler {
	return &JobHandler{queue: q, jobs: jobs}
}

type createJobRequest struct {
	FileURL  string `json:"file_url" validate:"required,url"`
	FileName string `json:"file_name" validate:"max=255"`
}

// Create queues an upload for transcription and post generation and answers
// with the job id to poll.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	log := zerolog.Ctx(ctx)
	userID := middleware.UserID(ctx)

	job, err := h.jobs.Create(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("create job")
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	err = h.queue.EnqueueUploadProcess(ctx, queue.UploadProcessPayload{
		JobID:    job.ID.String(),
		UserID:   userID,
		FileURL:  req.FileURL,
		FileName: req.FileName,
	})
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("enqueue upload")
		if terr := h.jobs.Transition(ctx, job.ID, models.JobStateFailed, "Failed to queue upload. Please try again.", nil); terr != nil {
			log.Warn().Err(terr).Str("job_id", job.ID.String()).Msg("mark job failed")
		}
		writeError(w, http.StatusServiceUnavailable, "failed to queue upload")
		return
	}

	log.Info().Str("job_id", job.ID.String()).Msg("upload queued")
	w.Header().Set("Location", "/api/v1/jobs/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "state": job.State})
}

// Get returns the caller's job status. Jobs of other users look missing.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	switch {
	case errors.Is(err, queue.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("job_id", id.String()).Msg("get job")
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job.UserID != middleware.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}
