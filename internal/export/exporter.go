package export

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dvloznov/statement-converter/internal/domain"
	"github.com/dvloznov/statement-converter/internal/logger"
	"github.com/dvloznov/statement-converter/internal/metrics"
)

// Exporter writes transaction workbooks to a FileSink under
// timestamped names.
type Exporter struct {
	sink    FileSink
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.Mutex
	lastMs int64
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the clock used for filenames.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// WithMetrics records successful exports on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) {
		e.metrics = m
	}
}

// NewExporter creates an exporter writing to sink. sink may be nil when
// only Prepare is used.
func NewExporter(sink FileSink, opts ...Option) *Exporter {
	e := &Exporter{sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Filename formats the export name for the given epoch milliseconds.
func Filename(ms int64) string {
	return filenamePrefix + strconv.FormatInt(ms, 10) + filenameExt
}

// NextFilename returns a name that is unique for this exporter, even when
// called twice within the same millisecond.
func (e *Exporter) NextFilename() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ms := e.now().UnixMilli()
	if ms <= e.lastMs {
		ms = e.lastMs + 1
	}
	e.lastMs = ms
	return Filename(ms)
}

// File is an encoded workbook ready to be saved.
type File struct {
	Name string
	Data []byte
}

// Prepare encodes the workbook for txs and assigns it a unique name.
func (e *Exporter) Prepare(txs []domain.Transaction) (*File, error) {
	f, err := Build(txs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: encode workbook: %w", err)
	}

	e.metrics.RecordExport()
	return &File{Name: e.NextFilename(), Data: buf.Bytes()}, nil
}

// Save writes a prepared file to sink.
func Save(ctx context.Context, sink FileSink, f *File) error {
	if err := sink.Save(ctx, f.Name, ContentType, bytes.NewReader(f.Data)); err != nil {
		return fmt.Errorf("export: save %s: %w", f.Name, err)
	}
	return nil
}

// Export builds the workbook for txs, saves it to the exporter's sink and
// returns the filename used.
func (e *Exporter) Export(ctx context.Context, txs []domain.Transaction) (string, error) {
	f, err := e.Prepare(txs)
	if err != nil {
		return "", err
	}
	if err := Save(ctx, e.sink, f); err != nil {
		return "", err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("file", f.Name).
		Int("transactions", len(txs)).
		Int("bytes", len(f.Data)).
		Msg("Spreadsheet exported")

	return f.Name, nil
}
