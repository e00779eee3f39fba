package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/nikhilbhutani/speakpost/internal/api/middleware"
	"github.com/nikhilbhutani/speakpost/internal/transcription"
)

type Transcriber interface {
	Transcribe(ctx context.Context, uploads []transcription.UploadDescriptor) transcription.Result
}

type TranscriptionHandler struct {
	svc Transcriber
}

func NewTranscriptionHandler(svc Transcriber) *TranscriptionHandler {
	return &TranscriptionHandler{svc: svc}
}

type uploadsRequest struct {
	Uploads []transcription.UploadDescriptor `json:"uploads"`
}

// Create transcribes the first upload. The body is either a bare array of
// upload descriptors or an object with an "uploads" array.
func (h *TranscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, transcription.Result{Message: err.Error()})
		return
	}

	uploads, err := parseUploads(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, transcription.Result{Message: "invalid request body"})
		return
	}
	if caller := middleware.UserID(r.Context()); caller != "" {
		for i := range uploads {
			if uploads[i].UserID == "" {
				uploads[i].UserID = caller
			}
		}
	}

	if err := transcription.Validate(uploads); err != nil {
		writeJSON(w, http.StatusBadRequest, transcription.Result{Message: err.Error()})
		return
	}

	res := h.svc.Transcribe(r.Context(), uploads)
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseUploads(raw json.RawMessage) ([]transcription.UploadDescriptor, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var uploads []transcription.UploadDescriptor
		if err := json.Unmarshal(trimmed, &uploads); err != nil {
			return nil, err
		}
		return uploads, nil
	}
	var req uploadsRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return req.Uploads, nil
}
