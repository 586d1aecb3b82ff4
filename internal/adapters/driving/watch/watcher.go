// Package watch ingests documents dropped into an inbox directory into an
// organization's shared knowledge base.
//
// Files that were ingested move to <inbox>/processed; files that were
// rejected move to <inbox>/failed next to a .reason file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Subdirectories of the inbox.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Defaults.
const (
	DefaultSettle    = 2 * time.Second
	DefaultBatchSize = 10
)

// Result reports the outcome of one flushed batch.
type Result struct {
	Files  []string
	Report *driving.IngestReport
	Err    error
}

// Watcher feeds new inbox files to a CollectionService.
type Watcher struct {
	dir         string
	identity    domain.Identity
	collections driving.CollectionService
	settle      time.Duration
	batchSize   int
	onBatch     func(Result)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle sets how long a file must be quiet before it is ingested.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

// WithBatchSize caps the files ingested together.
func WithBatchSize(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithResultHandler is called after every batch.
func WithResultHandler(fn func(Result)) Option {
	return func(w *Watcher) {
		w.onBatch = fn
	}
}

// New creates a watcher for dir acting as identity.
func New(dir string, identity domain.Identity, collections driving.CollectionService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:         dir,
		identity:    identity,
		collections: collections,
		settle:      DefaultSettle,
		batchSize:   DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run ingests files already in the inbox, then watches for new ones until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.identity.TenantKey().IsShared() {
		return fmt.Errorf("watch: %s is not an organization admin: %w", w.identity.User, domain.ErrInvalidInput)
	}
	for _, sub := range []string{"", ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o700); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	logger.Info("watch: watching %s for %s", w.dir, w.identity.TenantKey())

	pending := make(map[string]time.Time)
	existing, err := w.scan()
	if err != nil {
		return err
	}
	for _, p := range existing {
		pending[p] = time.Time{}
	}

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.candidate(ev); ok {
				pending[path] = time.Now()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case now := <-ticker.C:
			ready := settled(pending, now, w.settle)
			for len(ready) > 0 {
				n := min(len(ready), w.batchSize)
				w.flush(ctx, ready[:n])
				ready = ready[n:]
			}
		}
	}
}

func (w *Watcher) tick() time.Duration {
	if t := w.settle / 4; t > 10*time.Millisecond {
		return t
	}
	return 10 * time.Millisecond
}

// candidate reports whether ev announces a file to ingest.
func (w *Watcher) candidate(ev fsnotify.Event) (string, bool) {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
		return "", false
	}
	if filepath.Dir(ev.Name) != filepath.Clean(w.dir) || hidden(ev.Name) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

// scan lists files waiting in the inbox.
func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && !hidden(e.Name()) {
			out = append(out, filepath.Join(w.dir, e.Name()))
		}
	}
	return out, nil
}

// settled removes and returns the paths quiet for at least d.
func settled(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= d {
			ready = append(ready, path)
			delete(pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// flush ingests one batch and files the inputs away.
func (w *Watcher) flush(ctx context.Context, paths []string) {
	result := Result{Files: paths}
	uploads, closeAll, err := open(paths)
	if err != nil {
		result.Err = err
	} else {
		result.Report, result.Err = w.collections.Add(ctx, w.identity, uploads)
		closeAll()
	}

	rejected := make(map[string]string)
	if result.Report != nil {
		for _, r := range result.Report.Rejected {
			rejected[r.Name] = r.Reason
		}
	}
	for _, p := range paths {
		reason, bad := rejected[filepath.Base(p)]
		if result.Err != nil && !bad {
			reason, bad = domain.Reason(result.Err), true
		}
		if bad {
			w.moveFailed(p, reason)
			continue
		}
		w.move(p, ProcessedDir)
	}

	if result.Err != nil {
		logger.Warn("watch: batch of %d failed: %v", len(paths), result.Err)
	} else {
		logger.Info("watch: indexed %d passages from %d files", result.Report.Indexed, len(paths))
	}
	if w.onBatch != nil {
		w.onBatch(result)
	}
}

func (w *Watcher) move(path, sub string) {
	dst := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("watch: moving %s: %v", path, err)
	}
}

func (w *Watcher) moveFailed(path, reason string) {
	w.move(path, FailedDir)
	note := filepath.Join(w.dir, FailedDir, filepath.Base(path)+".reason")
	if err := os.WriteFile(note, []byte(reason+"\n"), 0o600); err != nil {
		logger.Warn("watch: %v", err)
	}
}

func open(paths []string) ([]domain.UploadFile, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	uploads := make([]domain.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		uploads = append(uploads, domain.UploadFile{Name: filepath.Base(p), Size: info.Size(), Content: f})
	}
	return uploads, closeAll, nil
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
