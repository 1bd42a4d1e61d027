package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSink receives generated files.
type FileSink interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) error
}

// DirSink saves files into a local directory, creating it if needed.
type DirSink struct {
	Dir string
}

func (s DirSink) Save(ctx context.Context, name, contentType string, r io.Reader) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", s.Dir, err)
	}

	p := filepath.Join(s.Dir, filepath.Base(name))
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create file %q: %w", p, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write file %q: %w", p, err)
	}
	return f.Close()
}

// WriterSink streams files to W. OnSave, when set, is called with the
// file metadata before any bytes are written.
type WriterSink struct {
	W      io.Writer
	OnSave func(name, contentType string)
}

func (s WriterSink) Save(ctx context.Context, name, contentType string, r io.Reader) error {
	if s.OnSave != nil {
		s.OnSave(name, contentType)
	}
	if _, err := io.Copy(s.W, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
