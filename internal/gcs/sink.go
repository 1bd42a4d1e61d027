package gcs

import (
	"context"
	"io"
	"path"
	"strings"
)

// Sink saves exported files under a bucket prefix.
type Sink struct {
	store  ObjectStore
	bucket string
	prefix string
}

// NewSink creates a sink for a destination such as "gs://bucket/exports".
func NewSink(store ObjectStore, dest string) (*Sink, error) {
	bucket, prefix, err := ParseURI(dest, true)
	if err != nil {
		return nil, err
	}
	return &Sink{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// ObjectName returns the object a file called name is stored as.
func (s *Sink) ObjectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// URI returns the gs:// URI of a file called name.
func (s *Sink) URI(name string) string {
	return scheme + s.bucket + "/" + s.ObjectName(name)
}

func (s *Sink) Save(ctx context.Context, name, contentType string, r io.Reader) error {
	return s.store.Upload(ctx, s.bucket, s.ObjectName(name), contentType, r)
}
