package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps the watermark as {"update": <ms>} in a JSON file.
// The file is rewritten through a temp file and rename.
type FileStore struct {
	path string
	log  *slog.Logger
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create watermark dir: %w", err)
		}
	}
	return &FileStore{path: path, log: slog.Default().With("component", "watermark")}, nil
}

// Read returns Absent when the file does not exist.
func (f *FileStore) Read(_ context.Context) int64 {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Absent
		}
		f.log.Error("watermark read failed", "error", err)
		return ReadFailed
	}

	var doc map[string]json.Number
	if err := json.Unmarshal(data, &doc); err != nil {
		f.log.Error("watermark file corrupt", "path", f.path, "error", err)
		return ReadFailed
	}
	n, ok := doc[key]
	if !ok {
		return Absent
	}
	v, err := n.Int64()
	if err != nil || !valid(v) {
		return Absent
	}
	return v
}

func (f *FileStore) Write(_ context.Context, ms int64) {
	if !valid(ms) {
		f.log.Warn("ignoring invalid watermark", "value", ms)
		return
	}
	data, err := json.Marshal(map[string]int64{key: ms})
	if err != nil {
		f.log.Error("watermark encode failed", "error", err)
		return
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		f.log.Error("watermark write failed", "error", err)
		return
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.log.Error("watermark write failed", "error", err)
	}
}

func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear watermark: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
