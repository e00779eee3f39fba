package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatePending   = "pending"
	JobStateRunning   = "running"
	JobStateSucceeded = "succeeded"
	JobStateFailed    = "failed"
)

// JobStatus tracks one asynchronous upload-to-post run.
type JobStatus struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	State     string     `json:"state"`
	PostID    *uuid.UUID `json:"post_id,omitempty"`
	Message   string     `json:"message,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Done reports whether the job reached a terminal state.
func (j JobStatus) Done() bool {
	return j.State == JobStateSucceeded || j.State == JobStateFailed
}
