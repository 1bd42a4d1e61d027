// Package pdftext extracts plain text from PDF documents page by page.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
)

// DocumentParseError is returned when the input cannot be opened or decoded
// as a PDF (bad header, broken xref, encrypted without password, ...).
type DocumentParseError struct {
	Page int // 0 when the document itself could not be opened
	Err  error
}

func (e *DocumentParseError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("pdf: page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("pdf: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Err
}

// Extractor reads the text runs of every page of a PDF.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText returns the document text in page order. Runs within a page
// are joined with a single space and every page is terminated by "\n".
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	pages, err := e.ExtractPages(ctx, data)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ExtractPages returns one string per page, pages 1..N in order.
func (e *Extractor) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	r, err := openReader(data)
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runs, err := pageRuns(r, i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, strings.Join(runs, " "))
	}
	return pages, nil
}

// openReader wraps pdf.NewReader; the library panics on some malformed
// inputs, so panics are turned into DocumentParseError as well.
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = &DocumentParseError{Err: fmt.Errorf("%v", rec)}
		}
	}()

	if len(data) == 0 {
		return nil, &DocumentParseError{Err: fmt.Errorf("empty document")}
	}

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &DocumentParseError{Err: err}
	}
	return r, nil
}

// pageRuns returns the text runs of page i, rows top to bottom and runs
// left to right within a row.
func pageRuns(r *pdf.Reader, i int) (runs []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			runs = nil
			err = &DocumentParseError{Page: i, Err: fmt.Errorf("%v", rec)}
		}
	}()

	p := r.Page(i)
	if p.V.IsNull() {
		return nil, nil
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, &DocumentParseError{Page: i, Err: err}
	}

	return rowRuns(rows), nil
}

// rowRuns flattens rows into their non-empty text runs. The reader opens
// every row with an empty run.
func rowRuns(rows pdf.Rows) []string {
	var runs []string
	for _, row := range rows {
		for _, t := range row.Content {
			if t.S == "" {
				continue
			}
			runs = append(runs, t.S)
		}
	}
	return runs
}
