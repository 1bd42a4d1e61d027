package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/statement-converter/internal/api/middleware"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/pipeline"
	"github.com/dvloznov/statement-converter/internal/session"
	"github.com/go-chi/chi/v5"
)

// SessionsHandler serves the JSON API under /api/sessions.
type SessionsHandler struct {
	conv *Converter
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(conv *Converter) *SessionsHandler {
	return &SessionsHandler{conv: conv}
}

type sessionResponse struct {
	SessionID string         `json:"session_id"`
	State     pipeline.State `json:"state"`
}

type processResponse struct {
	SessionID string `json:"session_id"`
	JobID     string `json:"job_id"`
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
}

// Create handles POST /api/sessions
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.conv.store.Create()

	log := logger.FromContext(r.Context())
	log.Info().Str("session_id", sess.ID).Msg("Session created")
	middleware.WriteJSON(w, http.StatusCreated, sessionResponse{
		SessionID: sess.ID,
		State:     sess.Controller.State(),
	})
}

// Get handles GET /api/sessions/{id}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		State:     sess.Controller.State(),
	})
}

// UploadFile handles POST /api/sessions/{id}/file
func (h *SessionsHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.conv.upload(w, r, sess); err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		State:     sess.Controller.State(),
	})
}

// Process handles POST /api/sessions/{id}/process
func (h *SessionsHandler) Process(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	job, err := h.conv.startRun(r.Context(), sess)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, processResponse{
		SessionID: sess.ID,
		JobID:     job.JobID,
		RunID:     job.RunID,
		Status:    string(job.Status),
	})
}

// Export handles GET /api/sessions/{id}/export
func (h *SessionsHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.conv.writeExport(w, r, sess); err != nil {
		h.fail(w, r, err)
	}
}

// Delete handles DELETE /api/sessions/{id}
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.conv.reset(sess); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.conv.store.Delete(sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.conv.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, msgSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (h *SessionsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	log := logger.FromContext(r.Context())
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("Request failed")

	middleware.WriteError(w, status, msg)
}
