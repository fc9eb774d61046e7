// Package filestore keeps per-viewer read marks as JSON files on local disk.
package filestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ReadStateStore writes one file per viewer. Writes go to a temp file that is
// renamed over the old one, so a crash leaves either the old or the new set.
type ReadStateStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

type readStateFile struct {
	ViewerID string               `json:"viewer_id"`
	Marks    map[string]time.Time `json:"marks"`
}

func NewReadStateStore(dir string, logger *slog.Logger) (*ReadStateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create read state dir: %w", err)
	}
	return &ReadStateStore{dir: dir, logger: logger}, nil
}

// path encodes the viewer id so that distinct ids never share a file and no
// id can escape dir.
func (s *ReadStateStore) path(viewerID string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(viewerID))+".json")
}

// Get returns the viewer's marks. A viewer without a file has none. A
// corrupt file is logged and treated as empty.
func (s *ReadStateStore) Get(_ context.Context, viewerID string) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path(viewerID))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var f readStateFile
	if err := json.Unmarshal(b, &f); err != nil {
		s.logger.Warn("read_state_file_corrupt", "viewer_id", viewerID, "error", err)
		return map[string]time.Time{}, nil
	}
	if f.Marks == nil {
		f.Marks = map[string]time.Time{}
	}
	return f.Marks, nil
}

func (s *ReadStateStore) Put(_ context.Context, viewerID string, marks map[string]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(readStateFile{ViewerID: viewerID, Marks: marks})
	if err != nil {
		return fmt.Errorf("marshal read state: %w", err)
	}
	target := s.path(viewerID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write read state: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace read state: %w", err)
	}
	return nil
}
