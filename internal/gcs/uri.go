package gcs

import (
	"fmt"
	"path"
	"strings"
)

const scheme = "gs://"

// IsURI reports whether s looks like a Cloud Storage URI.
func IsURI(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object.
// The object part may be empty only when allowEmptyObject is set, which
// is how bucket prefixes are given.
func ParseURI(uri string, allowEmptyObject bool) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %s", uri)
	}
	if len(parts) == 2 {
		object = parts[1]
	}
	if object == "" && !allowEmptyObject {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return bucket, object, nil
}

// FilenameFromURI extracts the filename from a storage URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, scheme)

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
