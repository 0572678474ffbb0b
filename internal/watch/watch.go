// ============================================================================
// callexpr - Call Expression Parser Toolkit
// ============================================================================
//
// Package:     watch
// Description: Debounced change notification for a single file
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/pkg/core/logging"
)

// DefaultDebounce lets bursts of editor writes settle into one change
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher reports changes to one file. The parent directory is
// watched so editors that replace the file on save are still seen.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *logging.Logger
}

// New starts watching path
func New(path string, debounce time.Duration, logger *logging.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, mdwerror.Wrap(err, "invalid watch path").
			WithCode(mdwerror.CodeInvalidInput).
			WithDetail("path", path)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.New("callexpr-watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to create file watcher").WithCode(mdwerror.CodeInternal)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, mdwerror.Wrap(err, "failed to watch directory").
			WithCode(mdwerror.CodeNotFound).
			WithDetail("path", filepath.Dir(abs))
	}

	return &FileWatcher{
		watcher:  fsWatcher,
		path:     abs,
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Path returns the absolute path being watched
func (w *FileWatcher) Path() string {
	return w.path
}

// Run calls onChange after each settled change until ctx is done. It
// closes the watcher on return.
func (w *FileWatcher) Run(ctx context.Context, onChange func()) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.logger.Debug("File changed", "path", w.path)
			onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}
