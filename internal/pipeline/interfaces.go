package pipeline

import (
	"context"

	"github.com/dvloznov/statement-converter/internal/domain"
	"google.golang.org/genai"
)

// TextExtractor turns PDF bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// StatementParser provides an interface for AI-powered statement parsing.
// Implementations return either a fully populated list or an empty one;
// a non-nil error means the service could not be reached.
type StatementParser interface {
	ParseStatement(ctx context.Context, text string) ([]domain.Transaction, error)
}

// ContentGenerator is the subset of the genai Models API used by GeminiParser.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}
