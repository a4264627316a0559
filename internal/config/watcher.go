package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smazurov/vcapture/internal/logging"
)

// Watcher reloads a configuration file when it changes and hands every
// registered handler the same freshly loaded value.
//
// The parent directory is watched rather than the file so saves that
// replace the file (write to temp, rename over) keep being seen.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	onError  func(error)
	logger   logging.Logger

	mu       sync.Mutex
	handlers map[int]func(T)
	nextID   int

	watcher *fsnotify.Watcher
	done    chan struct{}
	stop    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets how long the file must stay quiet before it is
// reloaded. Default 1500ms.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler is called when a reload fails. Handlers are not called
// and keep their last good value.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewConfigWatcher returns a stopped watcher for path. loader runs on every
// change; nothing is cached between reloads.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger logging.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	if logger == nil {
		logger = logging.GetLogger("config")
	}
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		debounce: 1500 * time.Millisecond,
		loader:   loader,
		logger:   logger,
		handlers: make(map[int]func(T)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers handler and returns a function removing it.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

// Start begins watching. The file must exist.
func (w *Watcher[T]) Start() error {
	if _, err := os.Stat(w.path); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop ends watching. Pending reloads are dropped. Safe to call twice.
func (w *Watcher[T]) Stop() error {
	var err error
	w.stop.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}

func (w *Watcher[T]) watch() {
	var debounce <-chan time.Time

	for {
		select {
		case <-w.done:
			w.logger.Debug("Config watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("Config file change detected", "op", event.Op.String())
			debounce = time.After(w.debounce)

		case <-debounce:
			debounce = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload config", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.Unlock()

	w.logger.Info("Config reloaded", "path", w.path, "handlers", len(handlers))
	for _, h := range handlers {
		h(cfg)
	}
}

// WatchLogging applies [logging] edits in path to the running process.
// Levels change in place; cached module loggers stay valid.
func WatchLogging(path string, logger logging.Logger, opts ...WatcherOption[logging.Config]) (*Watcher[logging.Config], error) {
	w := NewConfigWatcher(path, func(p string) (logging.Config, error) {
		return LoadLoggingConfig(p), nil
	}, logger, opts...)
	w.OnReload(func(cfg logging.Config) {
		logging.Initialize(cfg)
		w.logger.Info("Logging configuration reloaded", "level", cfg.Level, "modules", len(cfg.Modules))
	})

	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
