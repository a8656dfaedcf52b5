package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk stores blobs under a base directory and serves them from a base
// URL (the API mounts the directory as static files).
type LocalDisk struct {
	basePath string
	baseURL  string
}

func NewLocalDisk(basePath, baseURL string) (*LocalDisk, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalDisk{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *LocalDisk) Save(ctx context.Context, objectPath string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := filepath.Join(d.basePath, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (d *LocalDisk) URL(objectPath string) string {
	return d.baseURL + "/" + objectPath
}
