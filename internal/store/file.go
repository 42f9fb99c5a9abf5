// Package store holds the file and in-memory AnswerStore backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soaringjerry/tsa-checkout/internal/models"
	"github.com/soaringjerry/tsa-checkout/internal/services"
)

const fileExt = ".json"

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// FileStore keeps one JSON document per submission in dir. Writes go to a
// temp file first and are renamed into place.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("file store: invalid submission id %q", id)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

func (s *FileStore) Put(_ context.Context, sub *models.Submission) error {
	path, err := s.path(sub.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("file store: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, sub.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (*models.Submission, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, services.ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.ErrNotFound
		}
		return nil, fmt.Errorf("file store: read: %w", err)
	}
	var sub models.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", filepath.Base(path), err)
	}
	return &sub, nil
}

// Take reads the submission and removes its file. Only the caller whose
// remove succeeds gets the submission.
func (s *FileStore) Take(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	path, _ := s.path(id)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.ErrNotFound
		}
		return nil, fmt.Errorf("file store: delete: %w", err)
	}
	return sub, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file store: delete: %w", err)
	}
	return nil
}

// DeleteBefore removes submissions created before cutoff, plus temp files
// left behind by interrupted writes.
func (s *FileStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("file store: list: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(s.dir, name)
		if strings.HasSuffix(name, ".tmp") {
			if info, err := e.Info(); err == nil && info.ModTime().Before(cutoff) {
				_ = os.Remove(full)
			}
			continue
		}
		if filepath.Ext(name) != fileExt {
			continue
		}
		sub, err := s.Get(ctx, strings.TrimSuffix(name, fileExt))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			log.WithError(err).WithField("file", name).Warn("removing unreadable submission")
		} else if !sub.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("file store: delete %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

var _ services.AnswerStore = (*FileStore)(nil)
