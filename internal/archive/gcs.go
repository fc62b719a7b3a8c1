package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCS archives page bodies in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCS wraps an existing storage client for the given bucket.
func NewGCS(client *storage.Client, bucket string) (*GCS, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	return &GCS{client: client, bucket: bucket, now: time.Now}, nil
}

// Save implements tracker.Archiver. It returns a gs:// URI for the
// uploaded body.
func (g *GCS) Save(ctx context.Context, sourceURL string, body []byte) (string, error) {
	path := objectPath(sourceURL, g.now())
	writer := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = "text/html; charset=utf-8"
	if _, err := io.Copy(writer, bytes.NewReader(body)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("upload archived body: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("upload archived body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close archive writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, path), nil
}
