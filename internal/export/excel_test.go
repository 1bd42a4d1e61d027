package export

import (
	"bytes"
	"testing"

	"github.com/dvloznov/statement-converter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sampleTxs = []domain.Transaction{
	{Date: "01/03/2024", Amount: 2500, Description: "Salário empresa"},
	{Date: "02/03/2024", Amount: -1500.5, Description: "aluguel"},
	{Date: "05/03/2024", Amount: -0.125, Description: "Tarifa pix"},
}

func readRows(t *testing.T, data []byte) ([]string, [][]string) {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return f.GetSheetList(), rows
}

func encode(t *testing.T, txs []domain.Transaction) []byte {
	t.Helper()

	f, err := Build(txs)
	require.NoError(t, err)
	defer f.Close()

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestBuild_Layout(t *testing.T) {
	sheets, rows := readRows(t, encode(t, sampleTxs))

	assert.Equal(t, []string{SheetName}, sheets)
	require.Len(t, rows, len(sampleTxs)+1)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"01/03/2024", "", "", "2500,00", "", "SALÁRIO EMPRESA"}, rows[1])
	assert.Equal(t, []string{"02/03/2024", "", "", "-1500,50", "", "ALUGUEL"}, rows[2])
	assert.Equal(t, []string{"05/03/2024", "", "", "-0,13", "", "TARIFA PIX"}, rows[3])
}

func TestBuild_EmptyInputWritesHeaderOnly(t *testing.T) {
	_, rows := readRows(t, encode(t, nil))

	require.Len(t, rows, 1)
	assert.Equal(t, Header, rows[0])
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	in := []domain.Transaction{{Date: "01/01/2024", Amount: 1, Description: "café"}}

	encode(t, in)
	assert.Equal(t, "café", in[0].Description)
}

func TestRow(t *testing.T) {
	row := Row(domain.Transaction{Date: "10/10/2024", Amount: 200, Description: "deposito"})
	assert.Equal(t, []interface{}{"10/10/2024", "", "", "200,00", "", "DEPOSITO"}, row)
}
