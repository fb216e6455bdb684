// Package watch re-parses documents when they change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/roboco-io/qmdtree/internal/parser"
)

// DefaultDebounce is how long a file must stay quiet before it is parsed.
const DefaultDebounce = 100 * time.Millisecond

// Event is the outcome of parsing one watched file.
type Event struct {
	Path   string
	Result *parser.Result
	Err    error
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Parser   parser.Options
	Logger   *zap.Logger
}

// Watcher parses a fixed set of files once, then again after each change.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool
	order    []string
	debounce time.Duration
	opts     parser.Options
	log      *zap.Logger
}

// New watches paths. The parent directories are watched so that editors
// that save by rename are still seen.
func New(paths []string, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fs,
		files:    make(map[string]bool),
		debounce: opts.Debounce,
		opts:     opts.Parser,
		log:      opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fs.Close()
			return nil, err
		}
		if w.files[abs] {
			continue
		}
		w.files[abs] = true
		w.order = append(w.order, abs)

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Files returns the absolute paths being watched, in the order given.
func (w *Watcher) Files() []string {
	return append([]string(nil), w.order...)
}

// Run parses every file, then calls fn after each settled change until ctx
// is done. fn is called from Run's goroutine only.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	for _, p := range w.order {
		fn(w.parse(p))
	}

	fire := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(ev.Name)
			if !w.files[path] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.log.Debug("change", zap.String("path", path), zap.Stringer("op", ev.Op))
			if t, ok := timers[path]; ok {
				t.Reset(w.debounce)
				continue
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- path:
				case <-ctx.Done():
				}
			})

		case path := <-fire:
			delete(timers, path)
			fn(w.parse(path))

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) parse(path string) Event {
	res, err := parser.ParseFile(path, w.opts)
	if err != nil {
		w.log.Debug("parse failed", zap.String("path", path), zap.Error(err))
	}
	return Event{Path: path, Result: res, Err: err}
}
