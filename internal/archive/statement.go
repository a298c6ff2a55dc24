package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// StatementWriter persists a rendered statement and returns its URI.
type StatementWriter interface {
	WriteStatement(ctx context.Context, objectName string, data []byte) (string, error)
}

// GCSStatementWriter writes statements to a Cloud Storage bucket. Assumes
// Application Default Credentials are configured.
type GCSStatementWriter struct {
	client *storage.Client
	bucket string
}

// NewGCSStatementWriter wraps an existing storage client. The caller owns
// the client's lifecycle.
func NewGCSStatementWriter(client *storage.Client, bucket string) *GCSStatementWriter {
	return &GCSStatementWriter{client: client, bucket: bucket}
}

// WriteStatement uploads data under objectName and returns the gs:// URI.
func (w *GCSStatementWriter) WriteStatement(ctx context.Context, objectName string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := w.client.Bucket(w.bucket).Object(objectName)
	ow := obj.NewWriter(ctx)
	ow.ContentType = "application/json"

	if _, err := io.Copy(ow, bytes.NewReader(data)); err != nil {
		_ = ow.Close()
		return "", fmt.Errorf("copy statement to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := ow.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", w.bucket, objectName), nil
}

var _ StatementWriter = (*GCSStatementWriter)(nil)
