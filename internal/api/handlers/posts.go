package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/api/middleware"
	"github.com/nikhilbhutani/speakpost/internal/models"
	"github.com/nikhilbhutani/speakpost/internal/pipeline"
	"github.com/nikhilbhutani/speakpost/internal/posts"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PostGenerator turns a transcript into a saved post.
type PostGenerator interface {
	GeneratePost(ctx context.Context, userID, transcript string) pipeline.Outcome
}

// PostStore reads and edits saved posts.
type PostStore interface {
	GetPost(ctx context.Context, userID string, id uuid.UUID) (*models.Post, error)
	ListPosts(ctx context.Context, userID string, limit, offset int) ([]models.PostSummary, error)
	UpdatePostContent(ctx context.Context, userID string, id uuid.UUID, content string) error
}

type PostHandler struct {
	gen   PostGenerator
	store PostStore
}

func NewPostHandler(gen PostGenerator, store PostStore) *PostHandler {
	return &PostHandler{gen: gen, store: store}
}

type createPostRequest struct {
	Transcriptions struct {
		Text string `json:"text"`
	} `json:"transcriptions"`
	UserID string `json:"user_id"`
}

type outcomeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type updatePostRequest struct {
	Content string `json:"content" validate:"required"`
}

// Create generates a post from a transcript and redirects to it. Failures
// answer with a JSON message and no redirect.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, outcomeResponse{Message: err.Error()})
		return
	}

	userID, err := resolveUser(r.Context(), req.UserID)
	switch {
	case errors.Is(err, errNoCaller):
		writeJSON(w, http.StatusUnauthorized, outcomeResponse{Message: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusForbidden, outcomeResponse{Message: err.Error()})
		return
	}

	out := h.gen.GeneratePost(r.Context(), userID, req.Transcriptions.Text)
	if !out.Succeeded() {
		status := http.StatusBadGateway
		if errors.Is(out.Err, pipeline.ErrNoTranscript) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, outcomeResponse{Message: out.Message})
		return
	}

	w.Header().Set("Location", postPath(out.PostID))
	w.WriteHeader(http.StatusSeeOther)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.store.ListPosts(r.Context(), middleware.UserID(r.Context()), limit, offset)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list posts")
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if list == nil {
		list = []models.PostSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": list, "count": len(list)})
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post ID")
		return
	}

	var req updatePostRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.store.UpdatePostContent(r.Context(), middleware.UserID(r.Context()), id, req.Content)
	switch {
	case errors.Is(err, posts.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("post_id", id.String()).Msg("update post")
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Export downloads the post body as a Markdown attachment named after its
// title.
func (h *PostHandler) Export(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName(post.Title)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(post.Content))
}

func (h *PostHandler) loadPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post ID")
		return nil, false
	}

	post, err := h.store.GetPost(r.Context(), middleware.UserID(r.Context()), id)
	switch {
	case errors.Is(err, posts.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
		return nil, false
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("post_id", id.String()).Msg("get post")
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return nil, false
	}
	return post, true
}

func postPath(id uuid.UUID) string {
	return "/api/v1/posts/" + id.String()
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9 _.-]+`)

func exportFileName(title string) string {
	name := strings.TrimSpace(unsafeFileChars.ReplaceAllString(title, ""))
	if name == "" {
		name = "post"
	}
	return name + ".md"
}

var (
	errNoCaller     = errors.New("missing " + middleware.UserIDHeader + " header")
	errUserMismatch = errors.New("user_id does not match the authenticated user")
)

// resolveUser returns the caller identity. A body user id is only accepted
// when it names the caller.
func resolveUser(ctx context.Context, bodyUserID string) (string, error) {
	caller := middleware.UserID(ctx)
	if caller == "" {
		return "", errNoCaller
	}
	if bodyUserID = strings.TrimSpace(bodyUserID); bodyUserID != "" && bodyUserID != caller {
		return "", errUserMismatch
	}
	return caller, nil
}
