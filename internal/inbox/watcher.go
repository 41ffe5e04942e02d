// Package inbox watches the capture inbox directory. The camera drops
// encoded images there; each finished file becomes a TakePhoto event.
package inbox

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config holds configuration for the inbox watcher.
type Config struct {
	// Debounce is how long a file must be quiet before it is emitted.
	// Cameras write images in several chunks.
	Debounce time.Duration

	// Logger for watcher activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 250 * time.Millisecond,
		Logger:   log.New(os.Stderr, "[inbox] ", log.LstdFlags),
	}
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Watcher emits the paths of image files created or written in a directory,
// once each file has stopped changing for the debounce interval.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	config  *Config

	paths chan string
	done  chan struct{}
	wg    sync.WaitGroup

	pending   map[string]time.Time // path -> last event
	pendingMu sync.Mutex

	mu      sync.Mutex
	running bool
}

// New creates a watcher for dir. The watcher must be started with Start
// before it will emit paths.
func New(dir string, config *Config) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("inbox directory cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: watcher,
		dir:     dir,
		config:  config,
		paths:   make(chan string, 100),
		done:    make(chan struct{}),
		pending: make(map[string]time.Time),
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start creates the inbox directory if needed and begins watching it.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch inbox %s: %w", w.dir, err)
	}

	w.running = true
	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	w.config.Logger.Printf("Watching %s", w.dir)
	return nil
}

// Stop stops watching and closes the Events channel. It blocks until the
// background goroutines have exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()
	close(w.paths)
	return nil
}

// Events returns the channel of settled image paths. It is closed by Stop.
func (w *Watcher) Events() <-chan string {
	return w.paths
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsImage(event.Name) {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// processPending emits files that have been quiet for the debounce interval.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	ticker := time.NewTicker(max(w.config.Debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			for _, path := range w.settled(time.Now()) {
				select {
				case w.paths <- path:
				case <-w.done:
					return
				}
			}
		}
	}
}

func (w *Watcher) settled(now time.Time) []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) < w.config.Debounce {
			continue
		}
		delete(w.pending, path)
		ready = append(ready, path)
	}
	return ready
}
