// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/mindchat/internal/logging"
)

// =============================================================================
// STORE WATCHER
// =============================================================================

// DefaultDebounce coalesces the burst of events one atomic write produces.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports writes to a store's backing file, including writes made
// by other mindchat processes. It watches the parent directory because
// atomic renames replace the file's inode.
type Watcher struct {
	fs       *fsnotify.Watcher
	base     string
	debounce time.Duration
	changes  chan struct{}
	logger   *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewWatcher starts watching path. Each burst of writes produces one value
// on Changes; values are dropped while the previous one is unread.
func NewWatcher(path string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("store has no backing file to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fs:       fsw,
		base:     filepath.Base(path),
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		logger:   logging.OrNop(logger),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes delivers a value after each debounced burst of writes. It is
// closed by Close.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher and closes Changes. Repeated calls return the
// first result.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.fs.Close()
		w.wg.Wait()
		close(w.changes)
	})
	return w.closeErr
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("store watcher error", zap.Error(err))
		}
	}
}

// relevant matches the store file and SQLite's -wal/-shm companions.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(event.Name)
	return name == w.base || strings.HasPrefix(name, w.base+"-")
}
