// Package file implements the snapshot contract on a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opentdc/events/internal/events/domain"
)

// Snapshot reads and writes the full record set as pretty-printed JSON.
// Writes go through a temp file in the same directory followed by a
// rename, so a crash mid-write never leaves a truncated snapshot behind.
type Snapshot struct {
	path string
}

func New(path string) (*Snapshot, error) {
	if path == "" {
		return nil, errors.New("file: snapshot path is required")
	}
	return &Snapshot{path: filepath.Clean(path)}, nil
}

// LoadAll returns the stored record set. A missing file is not an error;
// it simply means nothing has been saved yet.
func (s *Snapshot) LoadAll(_ context.Context) ([]domain.Invitation, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("file: read snapshot %s: %w", s.path, err)
	}

	var invitations []domain.Invitation
	if err := json.Unmarshal(data, &invitations); err != nil {
		return nil, fmt.Errorf("file: decode snapshot %s: %w", s.path, err)
	}
	return invitations, nil
}

// SaveAll replaces the stored record set.
func (s *Snapshot) SaveAll(_ context.Context, invitations []domain.Invitation) error {
	if invitations == nil {
		invitations = []domain.Invitation{}
	}

	data, err := json.MarshalIndent(invitations, "", "  ")
	if err != nil {
		return fmt.Errorf("file: encode snapshot: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file: close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file: replace snapshot %s: %w", s.path, err)
	}
	return nil
}
