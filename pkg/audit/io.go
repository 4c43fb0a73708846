package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// LoadRun reads a run directory. Each payload lives in its own file
// (seo.json, performance.json, ...); missing files are missing payloads.
// Files are read concurrently and decoded in canonical order.
func LoadRun(ctx context.Context, dir string) (*Run, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading run directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("run path %s is not a directory", dir)
	}

	kinds := PayloadKinds()
	blobs := make([][]byte, len(kinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, kind.FileName()))
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading %s payload: %w", kind, err)
			}
			blobs[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	run := &Run{}
	for i, kind := range kinds {
		if blobs[i] == nil {
			continue
		}
		if err := run.Apply(kind, blobs[i]); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// SaveRun writes every present payload of the run into dir.
func SaveRun(dir string, run *Run) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	for _, kind := range PayloadKinds() {
		data, err := run.Payload(kind)
		if err != nil {
			return fmt.Errorf("marshaling %s payload: %w", kind, err)
		}
		if data == nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, kind.FileName()), data, 0o644); err != nil {
			return fmt.Errorf("writing %s payload: %w", kind, err)
		}
	}
	return nil
}
