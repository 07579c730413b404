// Package watcher reports debounced changes of a set of files
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher watches files for changes and triggers callbacks
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu        sync.Mutex
	callbacks map[string]func(string)
	timers    map[string]*time.Timer
	closed    bool
}

// NewFileWatcher creates a file watcher. Events for one file within the
// debounce window collapse into a single callback.
func NewFileWatcher(debounce time.Duration, logger *zap.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileWatcher{
		watcher:   w,
		logger:    logger.With(zap.String("component", "watcher")),
		debounce:  debounce,
		callbacks: make(map[string]func(string)),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Watch adds files. callback receives the absolute path of the changed file.
func (fw *FileWatcher) Watch(files []string, callback func(string)) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", file, err)
		}
		if err := fw.watcher.Add(absPath); err != nil {
			return fmt.Errorf("failed to watch %s: %w", absPath, err)
		}
		fw.callbacks[absPath] = callback
		fw.logger.Debug("watching", zap.String("path", absPath))
	}
	return nil
}

// WatchResolved watches the files returned by resolve and resolves them
// again after each change, so dependency lists can grow or shrink
func (fw *FileWatcher) WatchResolved(resolve func() ([]string, error), callback func(string)) error {
	files, err := resolve()
	if err != nil {
		return err
	}

	var onChange func(string)
	onChange = func(path string) {
		defer callback(path)

		next, err := resolve()
		if err != nil {
			fw.logger.Warn("Failed to resolve watch targets", zap.Error(err))
			return
		}
		if err := fw.RemoveAll(); err != nil {
			fw.logger.Warn("Failed to reset watches", zap.Error(err))
		}
		if err := fw.Watch(next, onChange); err != nil {
			fw.logger.Warn("Failed to watch", zap.Error(err))
		}
	}
	return fw.Watch(files, onChange)
}

// Run dispatches events until ctx is done or the watcher is closed
func (fw *FileWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Start runs the event loop on its own goroutine
func (fw *FileWatcher) Start() {
	go func() {
		_ = fw.Run(context.Background())
	}()
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		fw.schedule(event.Name)
	case event.Has(fsnotify.Rename), event.Has(fsnotify.Remove):
		// Editors that save by replacing the file drop the inotify watch.
		fw.rewatch(event.Name)
	}
}

func (fw *FileWatcher) rewatch(path string) {
	fw.mu.Lock()
	_, known := fw.callbacks[path]
	closed := fw.closed
	fw.mu.Unlock()
	if !known || closed {
		return
	}

	time.AfterFunc(fw.debounce, func() {
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("file gone", zap.String("path", path), zap.Error(err))
			return
		}
		fw.schedule(path)
	})
}

func (fw *FileWatcher) schedule(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	callback, ok := fw.callbacks[path]
	if !ok || fw.closed {
		return
	}
	if timer, ok := fw.timers[path]; ok {
		timer.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounce, func() {
		fw.logger.Info("file changed", zap.String("path", path))
		callback(path)
	})
}

// RemoveAll stops watching every file
func (fw *FileWatcher) RemoveAll() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for file := range fw.callbacks {
		if err := fw.watcher.Remove(file); err != nil {
			return err
		}
	}
	for _, timer := range fw.timers {
		timer.Stop()
	}
	fw.callbacks = make(map[string]func(string))
	fw.timers = make(map[string]*time.Timer)
	return nil
}

// Close stops the watcher and pending callbacks
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	fw.closed = true
	for _, timer := range fw.timers {
		timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}
