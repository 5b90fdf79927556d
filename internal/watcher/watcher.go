// Package watcher ingests files dropped into inbox directories. Files are handed
// to the ingest callback once they have stopped changing for the debounce
// period. Removals are ignored: the index is append-only.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// HandlerFunc ingests the file at path.
type HandlerFunc func(ctx context.Context, path string) error

// Watcher watches inbox directories and calls a HandlerFunc for new or changed files.
type Watcher struct {
	dirs       []string
	extensions []string
	recursive  bool
	debounce   time.Duration
	handle     HandlerFunc
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithExtensions limits the watched files to the given extensions (".pdf" or "pdf").
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithRecursive also watches subdirectories, including ones created later.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithDebounce sets how long a file must be quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over dirs. Missing directories are created on Run.
func New(dirs []string, handle HandlerFunc, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:      dirs,
		recursive: true,
		debounce:  defaultDebounce,
		handle:    handle,
		logger:    zap.NewNop(),
		pending:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Pending debounced files are dropped and
// in-flight handlers are waited for before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()
	defer w.shutdown()

	for _, dir := range w.dirs {
		if err := w.addRoot(dir); err != nil {
			return err
		}
	}
	w.logger.Info("watching inbox directories",
		zap.Strings("dirs", w.dirs),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()
	if fsw != nil {
		_ = fsw.Close()
	}
	w.wg.Wait()
}

func (w *Watcher) addRoot(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if !w.recursive {
		return w.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) && w.recursive {
			w.handleNewDirectory(ctx, ev.Name)
		}
		return
	}
	if info.Mode().IsRegular() && matchExtension(ev.Name, w.extensions) {
		w.schedule(ctx, ev.Name)
	}
}

// handleNewDirectory watches a directory created under a root and schedules the
// files already inside it, which were written before the watch was added.
func (w *Watcher) handleNewDirectory(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			w.mu.Lock()
			if w.fsw != nil {
				if err := w.fsw.Add(path); err != nil {
					w.logger.Debug("failed to watch directory", zap.String("path", path), zap.Error(err))
				}
			}
			w.mu.Unlock()
			return nil
		}
		if d.Type().IsRegular() && matchExtension(path, w.extensions) {
			w.schedule(ctx, path)
		}
		return nil
	})
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := w.handle(ctx, path); err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
			}
			return
		}
		w.logger.Debug("inbox file ingested", zap.String("path", path))
	})
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
