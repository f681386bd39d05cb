package handler

import (
	"context"
	"net/http"

	"snapintake/internal/repository"

	"github.com/gorilla/mux"
)

// ReviewHandler handles the reviewer-facing interview endpoints
type ReviewHandler struct {
	interviews  repository.InterviewRepo
	checkpoints repository.CheckpointRepo
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(interviews repository.InterviewRepo, checkpoints repository.CheckpointRepo) *ReviewHandler {
	return &ReviewHandler{
		interviews:  interviews,
		checkpoints: checkpoints,
	}
}

// List handles GET /v1/interviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.interviews.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// Get handles GET /v1/interviews/{sessionId}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	record, err := h.interviews.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Checkpoints handles GET /v1/interviews/{sessionId}/checkpoints
func (h *ReviewHandler) Checkpoints(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	record, err := h.interviews.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}

	checkpoints, err := h.listCheckpoints(r.Context(), record.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, checkpoints)
}

func (h *ReviewHandler) listCheckpoints(ctx context.Context, recordID string) (interface{}, error) {
	return h.checkpoints.ListByRecordID(ctx, recordID)
}
