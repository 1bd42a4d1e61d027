package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/statement-converter/internal/export"
	"github.com/dvloznov/statement-converter/internal/jobs"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/pipeline"
	"github.com/dvloznov/statement-converter/internal/session"
	"github.com/dvloznov/statement-converter/internal/web"
	"github.com/google/uuid"
)

// User-facing messages.
const (
	msgSessionNotFound  = "Sessão não encontrada."
	msgNoUpload         = "Nenhum arquivo enviado."
	msgNotPDF           = "Envie um arquivo PDF."
	msgTooLarge         = "Arquivo muito grande."
	msgNoFileSelected   = "Nenhum arquivo selecionado."
	msgRunInProgress    = "Já existe um processamento em andamento."
	msgQueueUnavailable = "Fila de processamento indisponível. Tente novamente."
	msgNothingToExport  = "Nenhuma transação para exportar."
	msgExportFailed     = "Falha ao gerar a planilha."
)

const pdfContentType = "application/pdf"

// SessionStore looks up and manages conversion sessions.
type SessionStore interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

// requestError is a failure that maps to an HTTP status and message.
type requestError struct {
	status int
	msg    string
	err    error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *requestError) Unwrap() error {
	return e.err
}

// statusOf returns the HTTP status and message for err.
func statusOf(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status, reqErr.msg
	}
	return http.StatusInternalServerError, "Internal server error"
}

// Converter holds the operations shared by the JSON API and the page.
type Converter struct {
	store     SessionStore
	publisher jobs.Publisher
	exporter  *export.Exporter
	archive   export.FileSink
	maxUpload int64
}

// NewConverter wires the shared operations. archive is optional and
// receives a copy of every downloaded spreadsheet.
func NewConverter(store SessionStore, publisher jobs.Publisher, exporter *export.Exporter, archive export.FileSink, maxUpload int64) *Converter {
	return &Converter{
		store:     store,
		publisher: publisher,
		exporter:  exporter,
		archive:   archive,
		maxUpload: maxUpload,
	}
}

// readUpload reads the single PDF sent in the multipart field "file".
func (c *Converter) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	if r.ContentLength > c.maxUpload {
		return "", nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: msgTooLarge}
	}
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: msgTooLarge, err: err}
		}
		return "", nil, &requestError{status: http.StatusBadRequest, msg: msgNoUpload, err: err}
	}
	defer file.Close()

	if !isPDF(header.Filename, header.Header.Get("Content-Type")) {
		return "", nil, &requestError{status: http.StatusUnsupportedMediaType, msg: msgNotPDF}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: msgTooLarge, err: err}
		}
		return "", nil, fmt.Errorf("read upload: %w", err)
	}

	return web.SanitizeFilename(header.Filename), data, nil
}

func isPDF(filename, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), pdfContentType) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// upload replaces the session's file with the uploaded PDF.
func (c *Converter) upload(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	name, data, err := c.readUpload(w, r)
	if err != nil {
		return err
	}

	if err := sess.Controller.SelectFile(name, data); err != nil {
		return busyOr(err)
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("session_id", sess.ID).
		Str("file", name).
		Int("bytes", len(data)).
		Msg("File selected")
	return nil
}

// startRun claims a run on the session and queues it.
func (c *Converter) startRun(ctx context.Context, sess *session.Session) (*jobs.ProcessJob, error) {
	run, err := sess.Controller.Begin()
	if err != nil {
		return nil, busyOr(err)
	}
	if run == nil {
		return nil, &requestError{status: http.StatusBadRequest, msg: msgNoFileSelected}
	}

	job := &jobs.ProcessJob{
		JobID:     uuid.New().String(),
		SessionID: sess.ID,
		RunID:     run.ID(),
		Status:    jobs.JobStatusPending,
		CreatedAt: time.Now(),
		Run:       run,
	}
	// Once published the job belongs to a worker.
	queued := *job
	if err := c.publisher.PublishProcess(ctx, job); err != nil {
		run.Abort(errors.New(msgQueueUnavailable))
		return nil, &requestError{status: http.StatusServiceUnavailable, msg: msgQueueUnavailable, err: err}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("session_id", queued.SessionID).
		Str("job_id", queued.JobID).
		Str("run_id", queued.RunID).
		Msg("Conversion queued")
	return &queued, nil
}

// reset discards the session's file and results.
func (c *Converter) reset(sess *session.Session) error {
	if err := sess.Controller.Reset(); err != nil {
		return busyOr(err)
	}
	return nil
}

// writeExport streams the session's spreadsheet as a download.
func (c *Converter) writeExport(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	txs := sess.Controller.State().Transactions
	if len(txs) == 0 {
		return &requestError{status: http.StatusConflict, msg: msgNothingToExport}
	}

	f, err := c.exporter.Prepare(txs)
	if err != nil {
		return &requestError{status: http.StatusInternalServerError, msg: msgExportFailed, err: err}
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))
	w.Header().Set("Content-Length", fmt.Sprint(len(f.Data)))
	w.WriteHeader(http.StatusOK)

	log := logger.FromContext(r.Context())
	if _, err := w.Write(f.Data); err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("Failed to write spreadsheet")
		return nil
	}

	if c.archive != nil {
		if err := export.Save(r.Context(), c.archive, f); err != nil {
			log.Error().Err(err).Str("file", f.Name).Msg("Failed to archive spreadsheet")
		}
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("file", f.Name).
		Int("transactions", len(txs)).
		Msg("Spreadsheet downloaded")
	return nil
}

func busyOr(err error) error {
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return &requestError{status: http.StatusConflict, msg: msgRunInProgress, err: err}
	}
	return err
}
