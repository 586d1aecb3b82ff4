// Package dictionary provides the English word list used to judge whether
// an embedded PDF text layer is readable.
package dictionary

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Dictionary implements the interface.
var _ driven.Dictionary = (*Dictionary)(nil)

// SystemWordList is the conventional location of the system dictionary.
const SystemWordList = "/usr/share/dict/words"

//go:embed words.txt
var builtinWords string

// Dictionary is a set of lower-cased words.
type Dictionary struct {
	words map[string]struct{}
}

// New returns a dictionary holding only the built-in word list.
func New() *Dictionary {
	d := &Dictionary{words: make(map[string]struct{}, 4096)}
	_ = d.add(strings.NewReader(builtinWords))
	return d
}

// Load returns the built-in list merged with every readable file in paths.
// Missing files are skipped; an unreadable existing file is an error.
func Load(paths ...string) (*Dictionary, error) {
	d := New()
	for _, p := range paths {
		if p == "" {
			continue
		}
		f, err := os.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("dictionary: %s not found, skipping", p)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("dictionary: %w", err)
		}
		err = d.add(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("dictionary: reading %s: %w", p, err)
		}
	}
	logger.Debug("dictionary: %d words", d.Size())
	return d, nil
}

// Contains reports whether the word is known, ignoring case.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.words[strings.ToLower(word)]
	return ok
}

// Size returns the number of known words.
func (d *Dictionary) Size() int {
	return len(d.words)
}

func (d *Dictionary) add(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		d.words[w] = struct{}{}
	}
	return sc.Err()
}
