package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/config"
)

func TestLocalStoragePutGetPayload(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"seoFiles":{}}`)
	key := PayloadKey("run1", audit.PayloadSEO)
	if err := s.Put(ctx, key, data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "run1", "payloads", "seo.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStoragePutGetReport(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"state":"complete"}`)
	if err := s.Put(ctx, ReportKey("run1", "rep1"), data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	expectedPath := filepath.Join(dir, "run1", "reports", "rep1.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageGetNotFound(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	_, err := s.Get(ctx, PayloadKey("run1", audit.PayloadPages))
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	if got := PayloadKey("r", audit.PayloadDesignImage); got != "r/payloads/design_image.json" {
		t.Errorf("PayloadKey = %q", got)
	}
	if got := ReportKey("r", "x"); got != "r/reports/x.json" {
		t.Errorf("ReportKey = %q", got)
	}
}

func TestObjectNameAndCacheControl(t *testing.T) {
	if got := objectName("", "r/payloads/seo.json"); got != "r/payloads/seo.json" {
		t.Errorf("objectName without prefix = %q", got)
	}
	if got := objectName("audits/prod/", "r/payloads/seo.json"); got != "audits/prod/r/payloads/seo.json" {
		t.Errorf("objectName with prefix = %q", got)
	}

	if got := cacheControl(ReportKey("r", "x")); got != "private, max-age=31536000, immutable" {
		t.Errorf("report cache control = %q", got)
	}
	if got := cacheControl(PayloadKey("r", audit.PayloadSEO)); got != "no-cache" {
		t.Errorf("payload cache control = %q", got)
	}
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStorage(ctx, config.StorageConfig{Backend: "local", LocalDir: t.TempDir()}, "", "")
	if err != nil {
		t.Fatalf("OpenStorage(local): %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Errorf("expected *LocalStorage, got %T", s)
	}

	if _, err := OpenStorage(ctx, config.StorageConfig{Backend: "ftp"}, "", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}
