package web

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/dvloznov/statement-converter/internal/pipeline"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))
	strictPolicy = bluemonday.StrictPolicy()
)

const (
	labelExtracting = "LENDO PDF..."
	labelParsing    = "ANALISANDO TRANSAÇÕES..."
	labelProcess    = "PROCESSAR EXTRATO"

	defaultFilename = "extrato.pdf"
)

// Row is one transaction as shown in the table.
type Row struct {
	Date        string
	Description string
	Amount      string
	Negative    bool
}

// View is everything the page template needs.
type View struct {
	FileName     string
	FileSize     string
	HasFile      bool
	Busy         bool
	ButtonLabel  string
	Failed       bool
	ErrorMessage string
	Notice       string
	Rows         []Row
	Year         int
}

// NewView derives the page model from a session snapshot.
func NewView(s pipeline.State) View {
	v := View{
		Busy:        s.Status.Busy(),
		ButtonLabel: buttonLabel(s.Status),
		Failed:      s.Status == pipeline.StatusError,
		Year:        time.Now().Year(),
	}
	if v.Failed {
		v.ErrorMessage = s.ErrorMessage
	}
	if s.SelectedFile != nil {
		v.HasFile = true
		v.FileName = s.SelectedFile.Name
		v.FileSize = FormatSize(s.SelectedFile.Size)
	}

	v.Rows = make([]Row, 0, len(s.Transactions))
	for _, tx := range s.Transactions {
		v.Rows = append(v.Rows, Row{
			Date:        tx.Date,
			Description: tx.DisplayDescription(),
			Amount:      tx.FormattedAmount(),
			Negative:    tx.IsDebit(),
		})
	}
	return v
}

func buttonLabel(s pipeline.Status) string {
	switch s {
	case pipeline.StatusExtracting:
		return labelExtracting
	case pipeline.StatusParsing:
		return labelParsing
	default:
		return labelProcess
	}
}

// FormatSize renders a byte count in KB with one decimal.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

// Render writes the page.
func Render(w io.Writer, v View) error {
	return pageTemplate.Execute(w, v)
}

// SanitizeFilename reduces a client-supplied filename to a plain base name
// without markup or control characters.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = html.UnescapeString(strictPolicy.Sanitize(name))
	name = strings.TrimSpace(filepath.Base(name))

	if name == "" || name == "." || name == "/" {
		return defaultFilename
	}
	return name
}
