// Package watcher observes the content directory tree and feeds
// debounced change events to a handler.
//
// fsnotify events are pushed onto a bounded queue by an event pump; a
// separate consumption loop coalesces rapid events per path and
// dispatches a path only after its debounce window elapses with no
// further activity. Each path debounces independently. The debounce
// logic is driven by an injectable clock so it is testable without real
// filesystem timers.
//
// An error while handling one path is logged and does not stop the
// watcher; only an explicit Stop (or context cancellation) ends it.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one debounced path. The path may no longer exist by
// the time the handler runs; handlers are expected to cope.
type Handler func(ctx context.Context, path string) error

// Config holds watcher configuration.
type Config struct {
	// DebounceInterval is how long a path must stay quiet before it is
	// dispatched. Events during the window collapse into one trigger.
	DebounceInterval time.Duration

	// Extension restricts watching to matching files (".md"). All other
	// filesystem events are ignored.
	Extension string

	// QueueSize bounds the event queue between the pump and the
	// consumption loop.
	QueueSize int

	// Logger for watcher activity.
	Logger *log.Logger

	// Now returns the current time. Tests inject a fake clock here.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: time.Second,
		Extension:        ".md",
		QueueSize:        256,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
		Now:              time.Now,
	}
}

// Watcher observes a directory tree for content file changes.
type Watcher struct {
	root    string
	handler Handler
	config  *Config

	fsw   *fsnotify.Watcher
	queue chan string

	pendingMu sync.Mutex
	pending   map[string]time.Time // path -> last event time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a Watcher over root. The watcher must be started with
// Start before it dispatches anything.
func New(root string, handler Handler, config *Config) (*Watcher, error) {
	if root == "" {
		return nil, fmt.Errorf("root cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:    root,
		handler: handler,
		config:  config,
		fsw:     fsw,
		queue:   make(chan string, config.QueueSize),
		pending: make(map[string]time.Time),
	}, nil
}

// Start watches the root tree and blocks until ctx is cancelled or Stop
// is called. New subdirectories are added to the watch as they appear.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	if err := w.watchTree(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	w.config.Logger.Printf("Watching %s (debounce %v)", w.root, w.config.DebounceInterval)

	w.wg.Add(2)
	go w.pumpEvents(ctx)
	go w.consume(ctx)

	<-ctx.Done()
	return w.Stop()
}

// Stop shuts the watcher down. Deterministic drain policy: pending paths
// whose debounce window has already elapsed are dispatched synchronously
// before Stop returns; paths still inside their window are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := w.fsw.Close(); err != nil {
		w.config.Logger.Printf("Error closing fsnotify watcher: %v", err)
	}
	w.wg.Wait()

	// Events still sitting in the queue never reached the consume loop;
	// move them into pending so they are flushed or counted like any
	// other pending path.
drain:
	for {
		select {
		case path := <-w.queue:
			w.markPending(path)
		default:
			break drain
		}
	}

	// Final drain with a background context: in-flight work completes,
	// unexpired entries are discarded.
	w.flushExpired(context.Background(), w.config.Now())
	w.pendingMu.Lock()
	dropped := len(w.pending)
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()
	if dropped > 0 {
		w.config.Logger.Printf("Dropped %d pending path(s) on shutdown", dropped)
	}

	w.config.Logger.Println("Watcher stopped")
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// watchTree adds dir and all its subdirectories to the fsnotify watch.
func (w *Watcher) watchTree(dir string) error {
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

// pumpEvents converts fsnotify events into queue entries.
func (w *Watcher) pumpEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	// New directories join the watch so nested content is seen.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchTree(event.Name); err != nil {
				w.config.Logger.Printf("Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if filepath.Ext(event.Name) != w.config.Extension {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	select {
	case w.queue <- event.Name:
	case <-ctx.Done():
	default:
		// Queue full: the path will be picked up by a later event; losing
		// a single coalesced trigger beats blocking the pump.
		w.config.Logger.Printf("Event queue full, dropping event for %s", event.Name)
	}
}

// consume drains the queue into the pending map and periodically
// dispatches paths whose debounce window elapsed.
func (w *Watcher) consume(ctx context.Context) {
	defer w.wg.Done()

	tick := w.config.DebounceInterval / 4
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case path := <-w.queue:
			w.markPending(path)

		case <-ticker.C:
			w.flushExpired(ctx, w.config.Now())
		}
	}
}

// markPending records (or refreshes) a path's last event time. Repeated
// events for the same path collapse into one pending entry.
func (w *Watcher) markPending(path string) {
	w.pendingMu.Lock()
	w.pending[path] = w.config.Now()
	w.pendingMu.Unlock()
}

// flushExpired dispatches every pending path whose debounce window has
// elapsed as of now. Handler errors are logged and the watcher keeps
// going.
func (w *Watcher) flushExpired(ctx context.Context, now time.Time) {
	w.pendingMu.Lock()
	var due []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.config.DebounceInterval {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	// Stable dispatch order keeps logs and tests deterministic.
	sort.Strings(due)

	for _, path := range due {
		if err := w.handler(ctx, path); err != nil {
			w.config.Logger.Printf("Error processing %s: %v", path, err)
		}
	}
}

// pendingCount reports the number of paths waiting out their window.
func (w *Watcher) pendingCount() int {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return len(w.pending)
}
