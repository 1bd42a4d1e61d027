package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{-1500.5, "-1500,50"},
		{200, "200,00"},
		{0, "0,00"},
		{1234567.891, "1234567,89"},
		{0.005, "0,01"},
		{-0.125, "-0,13"},
		{99.999, "100,00"},
		{-0.001, "-0,00"},
		{math.Copysign(0, -1), "-0,00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.input))
		})
	}
}

func TestTransactionDisplay(t *testing.T) {
	tx := Transaction{Date: "05/01/2024", Amount: -42.1, Description: "Pix enviado joão"}

	assert.True(t, tx.IsDebit())
	assert.Equal(t, "-42,10", tx.FormattedAmount())
	assert.Equal(t, "PIX ENVIADO JOÃO", tx.DisplayDescription())

	credit := Transaction{Amount: 10}
	assert.False(t, credit.IsDebit())
}
