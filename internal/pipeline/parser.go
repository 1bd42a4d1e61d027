package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-converter/internal/domain"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/metrics"
	"google.golang.org/genai"
)

// ParseOutcome tells apart the ways a parse call can end.
type ParseOutcome int

const (
	// OutcomeOK means the model returned a well-formed list.
	OutcomeOK ParseOutcome = iota
	// OutcomeServiceUnavailable means the request itself failed. Hard failure.
	OutcomeServiceUnavailable
	// OutcomeMalformedPayload means the model answered with something that is
	// not a list of complete records. Soft failure, recovered to an empty list.
	OutcomeMalformedPayload
)

func (o ParseOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeServiceUnavailable:
		return "service_unavailable"
	case OutcomeMalformedPayload:
		return "malformed_payload"
	default:
		return fmt.Sprintf("ParseOutcome(%d)", int(o))
	}
}

// ParseResult is the full result of one parse call.
type ParseResult struct {
	Outcome      ParseOutcome
	Transactions []domain.Transaction
	// Err is the hard failure for OutcomeServiceUnavailable and the decode
	// failure for OutcomeMalformedPayload.
	Err error
}

// ServiceError wraps a failed call to the LLM service.
type ServiceError struct {
	Model string
	Err   error
}

func (e *ServiceError) Error() string {
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// GeminiParser is the StatementParser backed by Gemini.
type GeminiParser struct {
	gen     ContentGenerator
	model   string
	metrics *metrics.Metrics
}

// NewGeminiParser creates a parser issuing requests through gen.
// An empty model selects DefaultModelName.
func NewGeminiParser(gen ContentGenerator, model string, m *metrics.Metrics) *GeminiParser {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiParser{
		gen:     gen,
		model:   model,
		metrics: m,
	}
}

// NewGeminiClient creates a Gemini API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return client, nil
}

// ParseStatement implements StatementParser. Service failures are returned
// as *ServiceError; unusable model output yields an empty list and nil error.
func (p *GeminiParser) ParseStatement(ctx context.Context, text string) ([]domain.Transaction, error) {
	res := p.Parse(ctx, text)
	if res.Outcome == OutcomeServiceUnavailable {
		return nil, res.Err
	}
	return res.Transactions, nil
}

// Parse sends text to the model exactly once and classifies the answer.
func (p *GeminiParser) Parse(ctx context.Context, text string) ParseResult {
	log := logger.FromContext(ctx)

	resp, err := p.gen.GenerateContent(ctx, p.model, genai.Text(buildStatementPrompt(text)), statementConfig())
	if err != nil {
		p.metrics.RecordParseOutcome(OutcomeServiceUnavailable.String())
		log.Error().Err(err).Str("model", p.model).Str("outcome", OutcomeServiceUnavailable.String()).Msg("Statement parse request failed")
		return ParseResult{
			Outcome: OutcomeServiceUnavailable,
			Err:     &ServiceError{Model: p.model, Err: err},
		}
	}

	rawText := ""
	if resp != nil {
		rawText = resp.Text()
	}

	txs, err := decodeTransactions(rawText)
	if err != nil {
		p.metrics.RecordParseOutcome(OutcomeMalformedPayload.String())
		log.Warn().Err(err).Str("model", p.model).Str("outcome", OutcomeMalformedPayload.String()).
			Int("response_bytes", len(rawText)).Msg("Discarding unusable model output")
		return ParseResult{
			Outcome:      OutcomeMalformedPayload,
			Transactions: []domain.Transaction{},
			Err:          err,
		}
	}

	p.metrics.RecordParseOutcome(OutcomeOK.String())
	log.Debug().Str("model", p.model).Int("transactions", len(txs)).Msg("Statement parsed")
	return ParseResult{Outcome: OutcomeOK, Transactions: txs}
}

// decodeTransactions turns the model's text into records. An empty answer
// counts as an empty list.
func decodeTransactions(rawText string) ([]domain.Transaction, error) {
	clean := cleanModelJSON(rawText)
	if clean == "" {
		clean = "[]"
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("decodeTransactions: unmarshal JSON: %w", err)
	}

	return transformModelOutputToTransactions(parsed)
}

// cleanModelJSON strips Markdown fences the model may add despite the
// JSON response mode.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])

		if end := strings.LastIndex(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	return strings.TrimSpace(s)
}
