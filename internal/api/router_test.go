package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/speakpost/internal/config"
	"github.com/nikhilbhutani/speakpost/internal/models"
	"github.com/nikhilbhutani/speakpost/internal/pipeline"
	"github.com/nikhilbhutani/speakpost/internal/queue"
	"github.com/nikhilbhutani/speakpost/internal/transcription"
)

type stubPipeline struct {
	id uuid.UUID
}

func (s stubPipeline) Transcribe(ctx context.Context, uploads []transcription.UploadDescriptor) transcription.Result {
	return transcription.Result{Success: true, Message: "Transcription completed successfully",
		Data: &transcription.ResultData{Transcription: "words", UserID: uploads[0].UserID}}
}

func (s stubPipeline) GeneratePost(ctx context.Context, userID, transcript string) pipeline.Outcome {
	return pipeline.Outcome{PostID: s.id, Title: "T", Message: "Blog post created successfully"}
}

type stubPosts struct{}

func (stubPosts) GetPost(ctx context.Context, userID string, id uuid.UUID) (*models.Post, error) {
	return &models.Post{ID: id, UserID: userID, Title: "T", Content: "# T"}, nil
}

func (stubPosts) ListPosts(ctx context.Context, userID string, limit, offset int) ([]models.PostSummary, error) {
	return nil, nil
}

func (stubPosts) UpdatePostContent(ctx context.Context, userID string, id uuid.UUID, content string) error {
	return nil
}

func (stubPosts) UpsertUser(ctx context.Context, userID, fullName, email string) error { return nil }

type stubQueue struct{}

func (stubQueue) EnqueueUploadProcess(ctx context.Context, p queue.UploadProcessPayload) error {
	return nil
}

type stubJobs struct{}

func (stubJobs) Create(ctx context.Context, userID string) (models.JobStatus, error) {
	return models.JobStatus{ID: uuid.New(), UserID: userID, State: models.JobStatePending}, nil
}

func (stubJobs) Get(ctx context.Context, id uuid.UUID) (models.JobStatus, error) {
	return models.JobStatus{}, queue.ErrJobNotFound
}

func (stubJobs) Transition(ctx context.Context, id uuid.UUID, state, message string, postID *uuid.UUID) error {
	return nil
}

func newTestHandler(t *testing.T, id uuid.UUID) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
	}
	deps := Deps{
		Pipeline: stubPipeline{id: id},
		Posts:    stubPosts{},
		Queue:    stubQueue{},
		Jobs:     stubJobs{},
	}
	return NewRouter(cfg, deps, zerolog.Nop()).Setup()
}

func TestRoutes(t *testing.T) {
	id := uuid.New()
	h := newTestHandler(t, id)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		user   string
		status int
	}{
		{"healthz", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"readyz without checks", http.MethodGet, "/readyz", "", "", http.StatusOK},
		{"transcribe", http.MethodPost, "/api/v1/transcriptions", `[{"user_id":"u1","file_url":"https://f/a.mp3"}]`, "", http.StatusOK},
		{"create post", http.MethodPost, "/api/v1/posts", `{"transcriptions":{"text":"words"},"user_id":"u1"}`, "u1", http.StatusSeeOther},
		{"create post requires identity", http.MethodPost, "/api/v1/posts", `{"transcriptions":{"text":"words"},"user_id":"victim"}`, "", http.StatusUnauthorized},
		{"list posts requires identity", http.MethodGet, "/api/v1/posts", "", "", http.StatusUnauthorized},
		{"list posts", http.MethodGet, "/api/v1/posts", "", "u1", http.StatusOK},
		{"get post", http.MethodGet, "/api/v1/posts/" + id.String(), "", "u1", http.StatusOK},
		{"export post", http.MethodGet, "/api/v1/posts/" + id.String() + "/export", "", "u1", http.StatusOK},
		{"update post", http.MethodPut, "/api/v1/posts/" + id.String(), `{"content":"x"}`, "u1", http.StatusOK},
		{"upsert user", http.MethodPut, "/api/v1/users/me", `{"email":"a@b.co"}`, "u1", http.StatusOK},
		{"create job", http.MethodPost, "/api/v1/jobs", `{"file_url":"https://f/a.mp3"}`, "u1", http.StatusAccepted},
		{"missing job", http.MethodGet, "/api/v1/jobs/" + uuid.NewString(), "", "u1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.user != "" {
				req.Header.Set("X-User-ID", tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestCreatePostRedirectLocation(t *testing.T) {
	id := uuid.New()
	h := newTestHandler(t, id)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts",
		strings.NewReader(`{"transcriptions":{"text":"words"},"user_id":"u1"}`))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/api/v1/posts/"+id.String(), rec.Header().Get("Location"))
}
