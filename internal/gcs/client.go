package gcs

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// ObjectStore reads and writes Cloud Storage objects.
type ObjectStore interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) error
}

// Client is an ObjectStore backed by Cloud Storage. It assumes Application
// Default Credentials are configured.
type Client struct {
	sc *storage.Client
}

// NewClient creates a storage client.
func NewClient(ctx context.Context) (*Client, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{sc: sc}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.sc.Close()
}

// Fetch downloads the object at uri.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri, false)
	if err != nil {
		return nil, err
	}

	rc, err := c.sc.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Upload writes r to bucket/object.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.sc.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s/%s: %w", bucket, object, err)
	}
	return nil
}
