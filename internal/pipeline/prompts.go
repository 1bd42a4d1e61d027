package pipeline

import (
	"strings"

	"google.golang.org/genai"
)

const statementInstructions = "Extraia as transações do seguinte texto de extrato bancário.\n" +
	"Retorne uma lista de objetos com: data (no formato DD/MM/AAAA), " +
	"valor (número positivo para crédito, negativo para débito) e " +
	"historico (descrição da transação).\n\n" +
	"Texto do extrato:\n"

// buildStatementPrompt embeds the extracted statement text into the fixed
// extraction instructions.
func buildStatementPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(statementInstructions) + len(text))
	b.WriteString(statementInstructions)
	b.WriteString(text)
	return b.String()
}

// statementSchema constrains the model output to an array of
// {data, valor, historico} objects, all required.
func statementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"data": {
					Type:        genai.TypeString,
					Description: "Data da transação (DD/MM/AAAA)",
				},
				"valor": {
					Type:        genai.TypeNumber,
					Description: "Valor da transação (negativo para saídas/débitos, positivo para entradas/créditos)",
				},
				"historico": {
					Type:        genai.TypeString,
					Description: "Descrição ou histórico da transação",
				},
			},
			Required:         []string{"data", "valor", "historico"},
			PropertyOrdering: []string{"data", "valor", "historico"},
		},
	}
}

func statementConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   statementSchema(),
	}
}
