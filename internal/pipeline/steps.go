package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-converter/internal/domain"
)

// ErrNoTransactions is returned when a run finishes parsing with zero records.
var ErrNoTransactions = errors.New(MessageNoTransactions)

// PipelineStep represents a single step of a conversion run.
type PipelineStep interface {
	Execute(ctx context.Context, state *RunState) error
}

// RunState holds the shared state across all steps of one run.
type RunState struct {
	RunID        string
	FileName     string
	PDFBytes     []byte
	Text         string
	Transactions []domain.Transaction
}

// ExtractTextStep extracts the statement text from the PDF.
type ExtractTextStep struct {
	Extractor TextExtractor
}

func (s *ExtractTextStep) Execute(ctx context.Context, state *RunState) error {
	text, err := s.Extractor.ExtractText(ctx, state.PDFBytes)
	if err != nil {
		return err
	}
	state.Text = text
	return nil
}

// ParseStatementStep calls the statement parser with the extracted text.
type ParseStatementStep struct {
	Parser StatementParser
}

func (s *ParseStatementStep) Execute(ctx context.Context, state *RunState) error {
	txs, err := s.Parser.ParseStatement(ctx, state.Text)
	if err != nil {
		return err
	}
	state.Transactions = txs
	return nil
}

// RequireTransactionsStep fails the run when nothing was parsed.
type RequireTransactionsStep struct{}

func (s *RequireTransactionsStep) Execute(ctx context.Context, state *RunState) error {
	if len(state.Transactions) == 0 {
		return ErrNoTransactions
	}
	return nil
}

// Stage binds a step to the status reported while it executes.
type Stage struct {
	Status Status
	Step   PipelineStep
}

// StepError reports which step of a run failed.
type StepError struct {
	Step   int
	Status Status
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline step %d (%s) failed: %v", e.Step, e.Status, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline executes a sequence of stages in order.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a new pipeline with the given stages.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Execute runs all stages sequentially. enter, when set, is called with
// the stage status before each step starts.
func (p *Pipeline) Execute(ctx context.Context, state *RunState, enter func(Status)) error {
	for i, s := range p.stages {
		if enter != nil {
			enter(s.Status)
		}
		if err := s.Step.Execute(ctx, state); err != nil {
			return &StepError{Step: i + 1, Status: s.Status, Err: err}
		}
	}
	return nil
}

// NewConversionPipeline creates the standard extract → parse pipeline.
func NewConversionPipeline(extractor TextExtractor, parser StatementParser) *Pipeline {
	return NewPipeline(
		Stage{Status: StatusExtracting, Step: &ExtractTextStep{Extractor: extractor}},
		Stage{Status: StatusParsing, Step: &ParseStatementStep{Parser: parser}},
		Stage{Status: StatusParsing, Step: &RequireTransactionsStep{}},
	)
}
