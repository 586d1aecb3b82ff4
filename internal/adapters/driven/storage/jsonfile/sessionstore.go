// Package jsonfile persists chat sessions as one JSON document per session.
//
// Records live at <root>/<user>/<session id>.json. Writes go to a temporary
// file that is renamed into place, so a crash never leaves a truncated record.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

const recordExt = ".json"

// SessionStore stores sessions as JSON files.
type SessionStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionStore creates a store rooted at root.
// If root is empty, defaults to ~/.docqa/chats.
func NewSessionStore(root string) (*SessionStore, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".docqa", "chats")
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating chats directory: %w", err)
	}
	return &SessionStore{root: root, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the directory holding all records.
func (s *SessionStore) Root() string {
	return s.root
}

// Save writes the whole session record.
func (s *SessionStore) Save(_ context.Context, session *domain.Session) error {
	path, err := s.path(session.Owner, session.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", session.ID, err)
	}

	l := s.lock(path)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".chat-*.tmp")
	if err != nil {
		return fmt.Errorf("writing session %s: %w", session.ID, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session %s: %w", session.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session %s: %w", session.ID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing session %s: %w", session.ID, err)
	}
	return nil
}

// Load reads a session record.
func (s *SessionStore) Load(_ context.Context, owner, id string) (*domain.Session, error) {
	path, err := s.path(owner, id)
	if err != nil {
		return nil, err
	}

	l := s.lock(path)
	l.Lock()
	defer l.Unlock()

	return readRecord(path, owner, id)
}

// List returns the owner's sessions, most recently updated first.
// Unreadable records are skipped.
func (s *SessionStore) List(_ context.Context, owner string) ([]domain.SessionSummary, error) {
	dir := filepath.Join(s.root, domain.SafeName(owner))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var out []domain.SessionSummary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, recordExt)
		session, err := readRecord(filepath.Join(dir, name), owner, id)
		if err != nil {
			logger.Warn("sessions: skipping %s: %v", name, err)
			continue
		}
		out = append(out, domain.SessionSummary{
			ID:        session.ID,
			Title:     session.DisplayTitle(),
			UpdatedAt: session.UpdatedAt,
			Messages:  len(session.Messages),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Delete removes a session record.
func (s *SessionStore) Delete(_ context.Context, owner, id string) error {
	path, err := s.path(owner, id)
	if err != nil {
		return err
	}

	l := s.lock(path)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

func (s *SessionStore) path(owner, id string) (string, error) {
	if owner == "" || id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("session %q of %q: %w", id, owner, domain.ErrInvalidInput)
	}
	return filepath.Join(s.root, domain.SafeName(owner), id+recordExt), nil
}

func (s *SessionStore) lock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

func readRecord(path, owner, id string) (*domain.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	session.ID = id
	session.Owner = owner
	return &session, nil
}
