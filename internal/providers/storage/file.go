package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
)

const recordExt = ".json"

// FileBackend stores each record as a file in one directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{dir: filepath.Clean(dir)}, nil
}

// Dir returns the storage directory.
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(id string) string {
	return filepath.Join(b.dir, id+recordExt)
}

// Write replaces the record for id.
func (b *FileBackend) Write(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", id, err)
	}
	if err := os.Rename(tmpName, b.path(id)); err != nil {
		return fmt.Errorf("rename %s: %w", id, err)
	}
	return nil
}

// Read returns the record for id.
func (b *FileBackend) Read(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, session.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return data, nil
}

// List returns every record id in sorted order.
func (b *FileBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(os.DirFS(b.dir), "*"+recordExt)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(m, recordExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the record for id.
func (b *FileBackend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(b.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return session.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}
