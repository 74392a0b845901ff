package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/semagg/entity"
)

const (
	// eventChannelBuffer is the size of the file event channel.
	eventChannelBuffer = 64

	defaultDebounce = 300 * time.Millisecond
)

// FileOp is the kind of change seen on a model file.
type FileOp string

// FileOpModify and FileOpDelete enumerate model file changes.
const (
	FileOpModify FileOp = "modify"
	FileOpDelete FileOp = "delete"
)

// FileEvent reports a debounced change of one watched model file.
type FileEvent struct {
	Path string
	Op   FileOp
}

// FileWatcher watches a fixed set of model files and emits one event per
// file per debounce window, only when the content actually changed.
// Events are delivered on a channel so the consumer applies reloads on its
// own goroutine; models are not safe for concurrent use.
type FileWatcher struct {
	files    map[string]bool
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashes map[string]uint64

	events        chan FileEvent
	droppedEvents atomic.Int64
}

// NewFileWatcher creates a watcher for the given model files.
func NewFileWatcher(paths []string, debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &FileWatcher{
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]uint64, len(paths)),
		events:   make(chan FileEvent, eventChannelBuffer),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		if content, err := os.ReadFile(abs); err == nil {
			w.hashes[abs] = xxhash.Sum64(content)
		}
	}
	return w, nil
}

// Events returns the channel of file events. It is closed when the watcher
// stops.
func (w *FileWatcher) Events() <-chan FileEvent {
	return w.events
}

// DroppedEvents returns how many events were dropped because the consumer
// fell behind.
func (w *FileWatcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// Start watches the directories holding the files. Editors often replace a
// file instead of writing it, so the directory is watched, not the file.
func (w *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range w.files {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Model watcher started",
		"files", len(w.files),
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *FileWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FileWatcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *FileWatcher) handleFSEvent(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.files[path] {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Model file change detected", "path", path, "op", event.Op.String())
}

func (w *FileWatcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		content, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			if _, known := w.hashes[path]; !known {
				continue
			}
			delete(w.hashes, path)
			w.sendEvent(FileEvent{Path: path, Op: FileOpDelete})
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to read model file", "path", path, "error", err)
			continue
		}

		sum := xxhash.Sum64(content)
		if prev, ok := w.hashes[path]; ok && prev == sum {
			continue
		}
		w.hashes[path] = sum
		w.sendEvent(FileEvent{Path: path, Op: FileOpModify})
	}
}

func (w *FileWatcher) sendEvent(event FileEvent) {
	select {
	case w.events <- event:
	default:
		w.droppedEvents.Add(1)
		w.logger.Warn("Model event channel full, dropping event", "path", event.Path)
	}
}

// Reload applies a file event to the model loaded from that file. A modified
// file replaces the model content; a deleted file empties it. The model id in
// the file must not change.
func Reload(m *Memory, event FileEvent) error {
	if event.Op == FileOpDelete {
		m.Replace(nil)
		return nil
	}

	data, err := os.ReadFile(event.Path)
	if err != nil {
		return fmt.Errorf("read model file: %w", err)
	}
	f, entities, err := ParseFile(data)
	if err != nil {
		return fmt.Errorf("reload %s: %w", event.Path, err)
	}
	if f.ID != m.ID() {
		return fmt.Errorf("reload %s: model id changed from %q to %q", event.Path, m.ID(), f.ID)
	}

	table := make(map[string]entity.Raw, len(entities))
	for _, e := range entities {
		table[e.EntityID()] = e
	}
	m.Replace(table)
	return nil
}
