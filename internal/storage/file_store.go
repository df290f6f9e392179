package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// fileStore implements LabelStore on the local file system.
type fileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a label store rooted at dir.
func NewFileStore(dir string, logger zerolog.Logger) LabelStore {
	return &fileStore{
		dir:    dir,
		logger: logger.With().Str("component", "file-label-store").Logger(),
	}
}

// Put writes the label through a temp file and rename so a reader never sees
// a partially written label.
func (s *fileStore) Put(ctx context.Context, key string, label Label) (string, error) {
	if err := label.validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", target).Msg("failed to create label directory")
		return "", fmt.Errorf("failed to create label directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".label-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp label file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(label.Content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write label file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close label file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move label into place: %w", err)
	}

	s.logger.Info().
		Str("path", target).
		Int("bytes", len(label.Content)).
		Msg("shipping label stored on local file system")

	return "file://" + filepath.ToSlash(target), nil
}
