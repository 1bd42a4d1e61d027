package pipeline

import (
	"fmt"

	"github.com/dvloznov/statement-converter/internal/domain"
)

// transformModelOutputToTransactions converts the decoded model answer into
// records. Any element that is not a complete record rejects the whole answer.
func transformModelOutputToTransactions(parsed interface{}) ([]domain.Transaction, error) {
	items, ok := parsed.([]interface{})
	if !ok {
		return nil, fmt.Errorf("transformModelOutputToTransactions: top level is %T, want array", parsed)
	}

	result := make([]domain.Transaction, 0, len(items))

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transformModelOutputToTransactions: element %d is %T, want object", i, item)
		}

		date, err := getStringField(obj, "data")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		amount, err := getFloat64Field(obj, "valor")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		desc, err := getStringField(obj, "historico")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		result = append(result, domain.Transaction{
			Date:        date,
			Amount:      amount,
			Description: desc,
		})
	}

	return result, nil
}

func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	return s, nil
}

func getFloat64Field(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
	return f, nil
}
