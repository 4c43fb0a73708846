package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage keeps run payloads and reports in a Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
	prefix string
}

// NewGCSStorage creates a GCS-backed StorageClient using Application
// Default Credentials.
func NewGCSStorage(ctx context.Context, bucket, prefix string) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: client.Bucket(bucket), name: bucket, prefix: prefix}, nil
}

// Put uploads a payload or report blob.
func (s *GCSStorage) Put(ctx context.Context, key string, data []byte) error {
	object := objectName(s.prefix, key)
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = blobContentType
	w.CacheControl = cacheControl(key)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s/%s: %w", s.name, object, err)
	}
	// The object only exists once Close succeeds.
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs finalize %s/%s: %w", s.name, object, err)
	}
	return nil
}

// Get downloads a payload or report blob.
func (s *GCSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	object := objectName(s.prefix, key)
	r, err := s.bucket.Object(object).NewReader(ctx)
	switch {
	case errors.Is(err, gcs.ErrObjectNotExist):
		return nil, fmt.Errorf("%s: %w", key, ErrBlobNotFound)
	case err != nil:
		return nil, fmt.Errorf("gcs read %s/%s: %w", s.name, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s/%s: %w", s.name, object, err)
	}
	return data, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
