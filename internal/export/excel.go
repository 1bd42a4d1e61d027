package export

import (
	"fmt"

	"github.com/dvloznov/statement-converter/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the name of the single worksheet in an export.
	SheetName = "Extrato"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	filenamePrefix = "extrato_convertido_"
	filenameExt    = ".xlsx"
)

// Header is the fixed column layout of the sheet.
var Header = []string{"data", "debito", "credito", "valor", "cod.historico", "historico"}

// Row returns the sheet row for a transaction. The debit, credit and
// history-code columns are always blank.
func Row(tx domain.Transaction) []interface{} {
	return []interface{}{
		tx.Date,
		"",
		"",
		tx.FormattedAmount(),
		"",
		tx.DisplayDescription(),
	}
}

// Build creates a workbook with a header row followed by one row per
// transaction in input order. The caller owns the returned file and must
// close it.
func Build(txs []domain.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("export: write header: %w", err)
	}

	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("export: row %d: %w", i+2, err)
		}
		row := Row(tx)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("export: write row %d: %w", i+2, err)
		}
	}

	return f, nil
}
