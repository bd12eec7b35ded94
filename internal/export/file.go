package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination writes export payloads to a file on local disk. Writes go
// through a temp file and rename so readers never observe a partial export.
type FileDestination struct {
	dir  string
	file string
}

// NewFileDestination creates a file destination. dir is created on first
// write if it does not exist.
func NewFileDestination(dir, file string) *FileDestination {
	return &FileDestination{dir: dir, file: file}
}

func (d *FileDestination) Name() string {
	return filepath.Join(d.dir, d.file)
}

// Write atomically replaces the export file with data.
func (d *FileDestination) Write(_ context.Context, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, "."+d.file+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, d.file)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
