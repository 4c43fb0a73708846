// Package ingestion accepts audit run payloads, stores them in blob storage,
// advances run readiness and recomputes the run's report.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/config"
)

// ErrBlobNotFound is returned by StorageClient.Get for a missing key.
var ErrBlobNotFound = errors.New("blob not found")

// StorageClient abstracts blob storage for payloads and reports.
type StorageClient interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// PayloadKey is the blob key of one run payload.
func PayloadKey(runID string, kind audit.PayloadKind) string {
	return path.Join(runID, "payloads", kind.FileName())
}

// ReportKey is the blob key of one computed report.
func ReportKey(runID, reportID string) string {
	return path.Join(runID, "reports", reportID+".json")
}

const blobContentType = "application/json"

// cacheControl is the Cache-Control of a bucket object. Reports are never
// rewritten; a payload is replaced when its kind is resubmitted.
func cacheControl(key string) string {
	if strings.Contains(key, "/reports/") {
		return "private, max-age=31536000, immutable"
	}
	return "no-cache"
}

// objectName prefixes a blob key for bucket backends.
func objectName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(key))
}

// Put stores a blob, creating parent directories as needed.
func (s *LocalStorage) Put(ctx context.Context, key string, data []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Get retrieves a blob.
func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// OpenStorage selects the blob storage backend named by cfg. S3 credentials
// fall back to the AWS default chain when accessKey is empty.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, accessKey, secretKey string) (StorageClient, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: accessKey,
			SecretKey: secretKey,
		})
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
