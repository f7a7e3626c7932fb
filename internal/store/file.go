package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/testament/internal/model"
)

// FileStore keeps one JSON file per will under a directory
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) SaveDraft(ctx context.Context, text string, meta Meta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	if err := s.write(newWill(id, text, meta, s.now())); err != nil {
		return "", err
	}
	return id, nil
}

func (s *FileStore) UpdateDraft(ctx context.Context, id string, fields Fields) error {
	return s.update(ctx, id, func(w *Will) { w.apply(fields) })
}

func (s *FileStore) SaveContacts(ctx context.Context, willID string, contacts []model.Contact) error {
	return s.update(ctx, willID, func(w *Will) {
		w.Contacts = append([]model.Contact(nil), contacts...)
	})
}

func (s *FileStore) SaveTranscript(ctx context.Context, willID string, transcript []model.Message, facts model.Facts) error {
	return s.update(ctx, willID, func(w *Will) {
		w.Transcript = append([]model.Message(nil), transcript...)
		w.Facts = facts.Clone()
	})
}

func (s *FileStore) Load(ctx context.Context, id string) (*Will, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(id)
}

func (s *FileStore) List(ctx context.Context) ([]Will, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}

	var out []Will
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		w, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	sortByUpdated(out)
	return out, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) update(ctx context.Context, id string, fn func(*Will)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.read(id)
	if err != nil {
		return err
	}
	fn(w)
	w.UpdatedAt = s.now()
	return s.write(*w)
}

func (s *FileStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) read(id string) (*Will, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read will %s: %w", id, err)
	}

	var w Will
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode will %s: %w", id, err)
	}
	return &w, nil
}

// write replaces the will file atomically
func (s *FileStore) write(w Will) error {
	path, err := s.path(w.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("encode will: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".will-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write will: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close will: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename will: %w", err)
	}
	return nil
}
