package handlers

import (
	"net/http"

	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/session"
	"github.com/dvloznov/statement-converter/internal/web"
)

// SessionCookie holds the page's session ID.
const SessionCookie = "extrato_session"

// PageHandler serves the HTML page and its form actions. Each browser gets
// its own session through a cookie.
type PageHandler struct {
	conv *Converter
}

// NewPageHandler creates a new page handler.
func NewPageHandler(conv *Converter) *PageHandler {
	return &PageHandler{conv: conv}
}

// Index handles GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	h.render(w, r, sess, http.StatusOK, "")
}

// Upload handles POST /upload
func (h *PageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	if err := h.conv.upload(w, r, sess); err != nil {
		status, msg := statusOf(err)
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Int("status", status).Msg("Upload rejected")
		h.render(w, r, sess, status, msg)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Process handles POST /process. Failures are reflected in the session
// state, so the page always redirects back.
func (h *PageHandler) Process(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	if _, err := h.conv.startRun(r.Context(), sess); err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("Conversion not started")
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Download handles GET /download
func (h *PageHandler) Download(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	if err := h.conv.writeExport(w, r, sess); err != nil {
		status, msg := statusOf(err)
		if status == http.StatusConflict {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Download failed")
		h.render(w, r, sess, status, msg)
	}
}

// Reset handles POST /reset
func (h *PageHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	if err := h.conv.reset(sess); err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("Reset refused")
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// session returns the browser's session, starting a new one when the
// cookie is missing or the session expired.
func (h *PageHandler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, err := h.conv.store.Get(c.Value); err == nil {
			return sess
		}
	}

	sess := h.conv.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, notice string) {
	view := web.NewView(sess.Controller.State())
	view.Notice = notice

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := web.Render(w, view); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to render page")
	}
}
