// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provider

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called with the families whose snapshot files changed
// during one debounce window. IDs are sorted and unique.
type ChangeHandler func(familyIDs []string)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long to wait for more changes before calling the
	// handler. Default: 200ms
	Debounce time.Duration

	// BufferSize is the size of the change channel. Default: 256
	BufferSize int

	// Logger receives watch errors. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		Debounce:   200 * time.Millisecond,
		BufferSize: 256,
	}
}

// WatcherOption is a functional option for configuring Watcher.
type WatcherOption func(*WatcherOptions)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(o *WatcherOptions) {
		if d > 0 {
			o.Debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(o *WatcherOptions) {
		o.Logger = logger
	}
}

// Watcher reports changed snapshot files of a Dir provider.
//
// Description:
//
//	Editors write files in bursts (truncate, write, rename), so events are
//	collected until Debounce passes without a new one, then the affected
//	family IDs are delivered in one call. Typical handler: invalidate the
//	cached graphs of those families.
//
// Thread Safety:
//
//	Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	dir     *Dir
	watcher *fsnotify.Watcher
	handler ChangeHandler
	options WatcherOptions
	logger  *slog.Logger

	changes  chan string
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a watcher for dir. Call Start to begin watching.
func NewWatcher(dir *Dir, handler ChangeHandler, opts ...WatcherOption) (*Watcher, error) {
	options := DefaultWatcherOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		watcher: fw,
		handler: handler,
		options: options,
		logger:  options.Logger,
		changes: make(chan string, options.BufferSize),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. Calling Start on a running watcher is a no-op.
//
// Both background goroutines exit when Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	if err := w.watcher.Add(w.dir.Root()); err != nil {
		return err
	}
	w.watching = true

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops watching, flushes pending changes and waits for the
// background goroutines.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
	w.wg.Wait()

	w.mu.Lock()
	w.watching = false
	w.mu.Unlock()
}

// IsWatching returns true if the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			familyID, ok := FamilyIDFromPath(event.Name)
			if !ok {
				continue
			}
			select {
			case w.changes <- familyID:
			default:
				w.logger.Warn("snapshot change buffer full, dropping event",
					slog.String("family_id", familyID),
				)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) > 0 && w.handler != nil {
			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			w.handler(ids)
		}
		pending = make(map[string]struct{})
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case id := <-w.changes:
			pending[id] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.options.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.options.Debounce)
			}
		case <-timerC:
			flush()
		}
	}
}
