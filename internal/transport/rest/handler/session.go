package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"snapintake/internal/model"
	"snapintake/internal/service"

	"github.com/gorilla/mux"
)

// SessionHandler handles the applicant-facing interview session endpoints
type SessionHandler struct {
	sessions *service.SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// StartSessionRequest is the request body for creating a session
type StartSessionRequest struct {
	AudioEnabled bool   `json:"audioEnabled"`
	DemoScenario string `json:"demoScenario,omitempty"`
}

// Start handles POST /v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	sessionID, err := h.sessions.StartSession(r.Context(), req.AudioEnabled, req.DemoScenario)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

// TranscriptEventRequest is a single transcript event from voice or text
type TranscriptEventRequest struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// Event handles POST /v1/sessions/{sessionId}/events
func (h *SessionHandler) Event(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req TranscriptEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAssistant {
		writeError(w, http.StatusBadRequest, "role must be user or assistant")
		return
	}

	if err := h.sessions.HandleTranscriptEvent(r.Context(), sessionID, req.Role, req.Content); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// CompleteRequest carries the confirmation collaborator's answer
type CompleteRequest struct {
	Confirmed bool `json:"confirmed"`
}

// Complete handles POST /v1/sessions/{sessionId}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.sessions.ManualComplete(r.Context(), sessionID, req.Confirmed)
	if err != nil {
		if errors.Is(err, service.ErrCompletionInProgress) {
			writeError(w, http.StatusConflict, "completion already in progress")
			return
		}
		// Recoverable: the record stays in progress, the client may retry.
		writeError(w, http.StatusServiceUnavailable, "failed to complete interview, please retry")
		return
	}
	if summary == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not confirmed"})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Status handles GET /v1/sessions/{sessionId}/status
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	status, err := h.sessions.Status(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Refresh handles POST /v1/sessions/{sessionId}/coverage/refresh
// Bypasses the debounce quiet period and re-evaluates coverage now.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if err := h.sessions.RefreshCoverage(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// Resume handles GET /v1/sessions/{sessionId}/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	checkpoint, err := h.sessions.Resume(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if checkpoint == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"checkpoint": nil})
		return
	}

	writeJSON(w, http.StatusOK, checkpoint)
}
