package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction represents one line item extracted from a bank statement.
// Field names on the wire follow the model's response schema.
type Transaction struct {
	Date        string  `json:"data"`      // DD/MM/YYYY, kept as display text
	Amount      float64 `json:"valor"`     // credit > 0, debit < 0, BRL implied
	Description string  `json:"historico"` // free text from the model
}

// IsDebit reports whether the transaction takes money out of the account.
func (t Transaction) IsDebit() bool {
	return t.Amount < 0
}

// FormattedAmount returns the amount as shown in the table and the spreadsheet.
func (t Transaction) FormattedAmount() string {
	return FormatAmount(t.Amount)
}

// DisplayDescription returns the upper-cased description.
func (t Transaction) DisplayDescription() string {
	return strings.ToUpper(t.Description)
}

// FormatAmount renders v with two decimal places, a comma as decimal
// separator and no thousands grouping, e.g. -1500.5 -> "-1500,50".
// Negative values that round to zero keep their sign ("-0,00").
func FormatAmount(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	if math.Signbit(v) && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return strings.Replace(s, ".", ",", 1)
}
