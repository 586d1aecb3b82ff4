package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptsReadme = `# docqa Prompts

Edit these files to change how answers are written. Changes apply to the
next question.

- answer_system.txt: instructions sent as the system prompt (no placeholders)
- answer.txt: the question prompt, with three %s placeholders for the chat
  history, the context passages and the question, in that order

An edited file with a different number of %s placeholders is ignored and
the default is used. Delete a file to restore its default.
`

// PromptStore serves prompt templates from <dir>/<name>.txt, seeded with
// the defaults it was created with. A file is re-read when its modification
// time changes.
type PromptStore struct {
	dir      string
	defaults map[string]string

	seedOnce sync.Once
	seedErr  error

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	modTime time.Time
	text    string
}

// NewPromptStore returns a store rooted at dir, or <home>/prompts when dir
// is empty. No files are written until the first Load.
func NewPromptStore(dir string, defaults map[string]string) (*PromptStore, error) {
	if dir == "" {
		home, err := Home()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, "prompts")
	}
	return &PromptStore{
		dir:      dir,
		defaults: defaults,
		cache:    make(map[string]cachedPrompt),
	}, nil
}

// Dir is where prompt files live.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named template. The default is returned when the file
// is missing, unreadable or has the wrong placeholder count.
func (s *PromptStore) Load(name string) (string, error) {
	def, known := s.defaults[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		logger.Debug("prompts: %v", s.seedErr)
		return def, nil
	}

	path := filepath.Join(s.dir, name+".txt")
	info, err := os.Stat(path)
	if err != nil {
		return def, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) {
		return c.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return def, nil
	}
	text := strings.TrimSpace(string(data))
	if got, want := placeholders(text), placeholders(def); got != want {
		logger.Warn("prompts: %s has %d %%s placeholders, want %d; using default", path, got, want)
		text = def
	}
	s.cache[name] = cachedPrompt{modTime: info.ModTime(), text: text}
	return text, nil
}

func placeholders(template string) int {
	return strings.Count(strings.ReplaceAll(template, "%%", ""), "%s")
}

// seed writes the default files and README without overwriting edits.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	files := map[string]string{"README.md": promptsReadme}
	for name, text := range s.defaults {
		files[name+".txt"] = text
	}
	for file, text := range files {
		if err := writeIfMissing(filepath.Join(s.dir, file), text); err != nil {
			s.seedErr = err
			return
		}
	}
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
