package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/statement-converter/internal/domain"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/metrics"
	"github.com/google/uuid"
)

// Status is the state of a conversion session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusExtracting Status = "extracting"
	StatusParsing    Status = "parsing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Busy reports whether a run is in flight.
func (s Status) Busy() bool {
	return s == StatusExtracting || s == StatusParsing
}

// ErrRunInProgress is returned when the session is changed or re-run while
// a run is in flight.
var ErrRunInProgress = errors.New("a conversion is already in progress")

// SelectedFile is the PDF chosen for the session.
type SelectedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Data []byte `json:"-"`
}

// State is a snapshot of a Controller.
type State struct {
	SelectedFile *SelectedFile        `json:"selected_file,omitempty"`
	Status       Status               `json:"status"`
	Transactions []domain.Transaction `json:"transactions"`
	ErrorMessage string               `json:"error_message,omitempty"`
	RunID        string               `json:"run_id,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Controller owns the state of one conversion session and drives runs of
// the conversion pipeline. State only changes through its methods.
type Controller struct {
	mu       sync.Mutex
	state    State
	pipeline *Pipeline
	metrics  *metrics.Metrics
	hook     func(from, to Status)
}

// NewController creates an idle controller running p.
func NewController(p *Pipeline, m *metrics.Metrics) *Controller {
	return &Controller{
		state: State{
			Status:       StatusIdle,
			Transactions: []domain.Transaction{},
			UpdatedAt:    time.Now(),
		},
		pipeline: p,
		metrics:  m,
	}
}

// SetTransitionHook registers fn to be called on every status change.
// fn runs with the controller locked and must not call back into it.
func (c *Controller) SetTransitionHook(fn func(from, to Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = fn
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if c.state.SelectedFile != nil {
		f := *c.state.SelectedFile
		s.SelectedFile = &f
	}
	s.Transactions = append([]domain.Transaction(nil), c.state.Transactions...)
	return s
}

// SelectFile replaces the selected file and clears previous results.
func (c *Controller) SelectFile(name string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status.Busy() {
		return ErrRunInProgress
	}

	c.state.SelectedFile = &SelectedFile{Name: name, Size: int64(len(data)), Data: data}
	c.state.Transactions = []domain.Transaction{}
	c.transitionLocked(StatusIdle)
	return nil
}

// Reset discards the file and results and returns the session to idle.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status.Busy() {
		return ErrRunInProgress
	}

	c.state.SelectedFile = nil
	c.state.Transactions = []domain.Transaction{}
	c.state.ErrorMessage = ""
	c.state.RunID = ""
	c.transitionLocked(StatusIdle)
	return nil
}

// Process runs the pipeline on the selected file and waits for it to finish.
// Without a selected file it does nothing. The returned error is also
// recorded in the session state.
func (c *Controller) Process(ctx context.Context) error {
	run, err := c.Begin()
	if err != nil || run == nil {
		return err
	}
	return run.Execute(ctx)
}

// Begin claims the controller for a new run and moves it to extracting.
// It returns a nil Run when no file is selected, and ErrRunInProgress when
// another run is in flight. The caller must Execute or Abort the run.
func (c *Controller) Begin() (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SelectedFile == nil {
		return nil, nil
	}
	if c.state.Status.Busy() {
		return nil, ErrRunInProgress
	}

	file := c.state.SelectedFile
	run := &Run{
		c: c,
		state: &RunState{
			RunID:    uuid.NewString(),
			FileName: file.Name,
			PDFBytes: file.Data,
		},
		started: time.Now(),
	}

	c.state.RunID = run.state.RunID
	c.state.ErrorMessage = ""
	c.transitionLocked(StatusExtracting)
	return run, nil
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitionLocked(s)
}

func (c *Controller) finish(txs []domain.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Transactions = txs
	c.transitionLocked(StatusDone)
}

func (c *Controller) fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.ErrorMessage = msg
	c.transitionLocked(StatusError)
}

func (c *Controller) transitionLocked(to Status) {
	from := c.state.Status
	c.state.Status = to
	c.state.UpdatedAt = time.Now()
	if c.hook != nil && from != to {
		c.hook(from, to)
	}
}

// Run is one claimed execution of the pipeline.
type Run struct {
	c       *Controller
	state   *RunState
	started time.Time
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.state.RunID
}

// Execute runs the pipeline and records the outcome on the controller.
func (r *Run) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx).With().
		Str("run_id", r.state.RunID).
		Str("file", r.state.FileName).
		Logger()

	current := StatusExtracting
	stageStart := time.Now()
	enter := func(s Status) {
		if s == current {
			return
		}
		r.c.metrics.ObserveStage(string(current), time.Since(stageStart))
		current, stageStart = s, time.Now()
		r.c.setStatus(s)
	}

	log.Info().Int("bytes", len(r.state.PDFBytes)).Msg("Conversion started")

	err := r.c.pipeline.Execute(ctx, r.state, enter)
	r.c.metrics.ObserveStage(string(current), time.Since(stageStart))
	if err != nil {
		reason := failureReason(err)
		r.c.metrics.RecordRun(string(StatusError), reason)
		log.Error().Err(err).Str("reason", reason).Dur("duration", time.Since(r.started)).Msg("Conversion failed")
		r.c.fail(userMessage(err))
		return err
	}

	r.c.metrics.RecordRun(string(StatusDone), "")
	log.Info().Int("transactions", len(r.state.Transactions)).Dur("duration", time.Since(r.started)).Msg("Conversion finished")
	r.c.finish(r.state.Transactions)
	return nil
}

// Abort ends a claimed run that could not be started, e.g. because the
// work queue refused it.
func (r *Run) Abort(err error) {
	r.c.metrics.RecordRun(string(StatusError), "aborted")
	r.c.fail(userMessage(err))
}

// userMessage derives the message shown to the user from a run failure.
func userMessage(err error) string {
	if err == nil {
		return MessageGenericFailure
	}
	if errors.Is(err, ErrNoTransactions) {
		return MessageNoTransactions
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Err != nil {
		err = stepErr.Err
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return MessageGenericFailure
}

func failureReason(err error) string {
	if errors.Is(err, ErrNoTransactions) {
		return "no_transactions"
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		switch stepErr.Status {
		case StatusExtracting:
			return "extraction"
		case StatusParsing:
			return "service"
		}
	}
	return "other"
}
