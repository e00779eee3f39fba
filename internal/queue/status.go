package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/speakpost/internal/models"
)

// JobTTL is how long finished job statuses remain queryable.
const JobTTL = 24 * time.Hour

var ErrJobNotFound = errors.New("job not found")

// KV is the subset of cache.Cache used for job statuses.
type KV interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// StatusStore keeps job statuses in Redis under job:{id}.
type StatusStore struct {
	kv  KV
	now func() time.Time
}

func NewStatusStore(kv KV) *StatusStore {
	return &StatusStore{kv: kv, now: time.Now}
}

func statusKey(id uuid.UUID) string {
	return "job:" + id.String()
}

// Create records a new pending job for userID.
func (s *StatusStore) Create(ctx context.Context, userID string) (models.JobStatus, error) {
	job := models.JobStatus{
		ID:        uuid.New(),
		UserID:    userID,
		State:     models.JobStatePending,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.kv.Set(ctx, statusKey(job.ID), job, JobTTL); err != nil {
		return models.JobStatus{}, fmt.Errorf("create job status: %w", err)
	}
	return job, nil
}

func (s *StatusStore) Get(ctx context.Context, id uuid.UUID) (models.JobStatus, error) {
	var job models.JobStatus
	found, err := s.kv.Get(ctx, statusKey(id), &job)
	if err != nil {
		return models.JobStatus{}, fmt.Errorf("get job status: %w", err)
	}
	if !found {
		return models.JobStatus{}, ErrJobNotFound
	}
	return job, nil
}

// Transition moves a job to state. postID is recorded when non-nil.
func (s *StatusStore) Transition(ctx context.Context, id uuid.UUID, state, message string, postID *uuid.UUID) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	job.State = state
	job.Message = message
	if postID != nil {
		job.PostID = postID
	}
	job.UpdatedAt = s.now().UTC()
	if err := s.kv.Set(ctx, statusKey(id), job, JobTTL); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}
