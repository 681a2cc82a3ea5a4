package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"mediarelay/internal/domain"
)

// FileCursorStore keeps the state record in a single JSON file.
type FileCursorStore struct {
	path string
	log  logrus.FieldLogger
}

// NewFileCursorStore returns a store backed by the file at path. The file is
// created on first Save.
func NewFileCursorStore(path string, logger logrus.FieldLogger) *FileCursorStore {
	return &FileCursorStore{
		path: path,
		log:  logger.WithFields(logrus.Fields{"component": "cursor_store", "path": path}),
	}
}

// Load reads the file. A missing file or invalid JSON yields empty state.
func (s *FileCursorStore) Load(ctx context.Context) (domain.State, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("State file does not exist, starting from an empty cursor")
		return domain.State{}, nil
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("failed to read state file: %w", err)
	}
	return decodeState(raw, s.log), nil
}

// Save writes the state to a temp file and renames it over the old one.
func (s *FileCursorStore) Save(ctx context.Context, state domain.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		s.log.WithError(err).Error("Failed to replace state file")
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	s.log.WithField("cursor", state.Cursor()).Debug("State saved")
	return nil
}

// Close is a no-op; the file is not held open.
func (s *FileCursorStore) Close() error {
	return nil
}
