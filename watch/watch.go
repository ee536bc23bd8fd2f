/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package watch reports file system changes under a directory tree in
// debounced batches.
package watch

import (
	"context"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a batch stays open after its last change.
const DefaultDebounce = 100 * time.Millisecond

// DefaultIgnore lists the patterns a watcher skips unless told otherwise.
var DefaultIgnore = []string{"**/node_modules", "**/.git", "**/*.swp", "**/*~"}

// Op is the kind of change seen for a path.
type Op int

const (
	Create Op = iota
	Write
	Remove
	Rename
)

func (op Op) String() string {
	switch op {
	case Create:
		return "create"
	case Write:
		return "write"
	case Remove:
		return "remove"
	case Rename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file system change.
type Change struct {
	Path string
	Op   Op
}

// Handler receives a batch of changes. A path appears at most once per
// batch, with the latest operation seen for it.
type Handler func([]Change)

// Options configures a Watcher.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// Ignore holds doublestar patterns matched against paths relative to
	// the root. A path is ignored when it or any parent directory matches.
	// Nil means DefaultIgnore.
	Ignore []string
	Logger *slog.Logger
}

// Watcher watches a directory tree recursively. Handlers run on a single
// goroutine, one batch at a time.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	ignore   []string
	logger   *slog.Logger

	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	watching bool
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, handler Handler, opts Options) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		fsw:      fsw,
		handler:  handler,
		debounce: opts.Debounce,
		ignore:   opts.Ignore,
		logger:   opts.Logger,
		changes:  make(chan Change, 256),
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.ignore == nil {
		w.ignore = DefaultIgnore
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	return w, nil
}

// Start adds every directory below the root and begins delivering batches.
// Watching ends when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}
	if err := w.addTree(w.root, false); err != nil {
		return err
	}
	w.watching = true

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	w.logger.Debug("watching", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop ends watching. A batch still collecting is delivered before Stop
// returns.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
	return err
}

// Ignored reports whether name, an absolute path, matches an ignore pattern.
func (w *Watcher) Ignored(name string) bool {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return true
	}
	for p := rel; p != "."; p = filepath.ToSlash(filepath.Dir(p)) {
		for _, pattern := range w.ignore {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return true
			}
		}
	}
	return false
}

// addTree watches dir and every directory below it. With announce set the
// files found are reported as created, since they may have appeared before
// the watch was in place.
func (w *Watcher) addTree(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(name string, d iofs.DirEntry, err error) error {
		if err != nil {
			// the tree may change under the walk
			return nil
		}
		if w.Ignored(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if announce {
				w.send(Change{Path: name, Op: Create})
			}
			return nil
		}
		return w.fsw.Add(name)
	})
}

func (w *Watcher) send(c Change) {
	select {
	case w.changes <- c:
	case <-w.done:
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.Ignored(event.Name) {
				continue
			}
			op, ok := convertOp(event.Op)
			if !ok {
				continue
			}
			if op == Create && isDir(event.Name) {
				if err := w.addTree(event.Name, true); err != nil {
					w.logger.Warn("watching new directory failed", "dir", event.Name, "error", err)
				}
				continue
			}
			w.send(Change{Path: event.Name, Op: op})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

// convertOp maps an fsnotify operation to an Op. Permission changes are not
// reported.
func convertOp(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	}
	return 0, false
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()
	var batch []Change
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		changes := dedupe(batch)
		batch = nil
		w.logger.Debug("change batch", "changes", len(changes))
		if w.handler != nil {
			w.handler(changes)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			// drain what the event loop already queued
		drain:
			for {
				select {
				case c := <-w.changes:
					batch = append(batch, c)
				default:
					break drain
				}
			}
			flush()
			return
		case c := <-w.changes:
			batch = append(batch, c)
			timer.Reset(w.debounce)
		case <-timer.C:
			flush()
		}
	}
}

// dedupe keeps one change per path, in first-seen order, carrying the most
// recent operation.
func dedupe(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if i, ok := seen[c.Path]; ok {
			out[i].Op = c.Op
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
