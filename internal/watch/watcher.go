// Package watch triggers a callback when any of a fixed set of files
// changes on disk. It backs hot reload of prompt overrides and TLS
// material.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumerag/internal/errors"
)

// FileWatcher watches files for writes, creates and renames and calls
// onChange once per burst of events.
type FileWatcher struct {
	mu sync.Mutex

	name          string
	files         []string
	lastModTime   map[string]time.Time
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	onChange   func()
	logger     *errors.Logger
	running    bool
}

// New creates a watcher. Empty paths are ignored; a zero debounce
// defaults to one second.
func New(name string, files []string, debounce time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	var watched []string
	for _, f := range files {
		if f != "" && !slices.Contains(watched, f) {
			watched = append(watched, f)
		}
	}
	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounce,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching. Watching nothing is not an error.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("%s watcher is already running", fw.name)
	}
	if len(fw.files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.fsWatcher = watcher

	for _, file := range fw.files {
		if stat, err := os.Stat(file); err == nil {
			fw.lastModTime[file] = stat.ModTime()
		}
		// The directory catches atomic replace-by-rename.
		dir := filepath.Dir(file)
		if err := watcher.Add(dir); err != nil && fw.logger != nil {
			fw.logger.Warn("Failed to watch directory", "watcher", fw.name, "directory", dir, "error", err)
		}
	}

	fw.running = true
	go fw.loop()

	if fw.logger != nil {
		fw.logger.Info("File watcher started", "watcher", fw.name, "files", fw.files, "debounce_delay", fw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}
	close(fw.stopChan)
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.running = false

	if err := fw.fsWatcher.Close(); err != nil {
		return fmt.Errorf("failed to close %s watcher: %w", fw.name, err)
	}
	if fw.logger != nil {
		fw.logger.Info("File watcher stopped", "watcher", fw.name)
	}
	return nil
}

// Files returns the watched paths.
func (fw *FileWatcher) Files() []string {
	return slices.Clone(fw.files)
}

func (fw *FileWatcher) loop() {
	for {
		select {
		case event, ok := <-fw.fsWatcher.Events:
			if !ok {
				return
			}
			if fw.relevant(event) {
				fw.scheduleReload()
			}

		case err, ok := <-fw.fsWatcher.Errors:
			if !ok {
				return
			}
			if fw.logger != nil {
				fw.logger.LogError(err, "File watcher error", "watcher", fw.name)
			}

		case <-fw.reloadChan:
			if fw.anyChanged() {
				if fw.logger != nil {
					fw.logger.Info("Watched files changed, reloading", "watcher", fw.name)
				}
				fw.onChange()
			}

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	for _, file := range fw.files {
		if filepath.Clean(event.Name) == filepath.Clean(file) {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case fw.reloadChan <- struct{}{}:
		default:
		}
	})
}

func (fw *FileWatcher) anyChanged() bool {
	changed := false
	for _, file := range fw.files {
		stat, err := os.Stat(file)
		if err != nil {
			if _, seen := fw.lastModTime[file]; seen && os.IsNotExist(err) {
				delete(fw.lastModTime, file)
				changed = true
			}
			continue
		}
		if last, seen := fw.lastModTime[file]; !seen || !stat.ModTime().Equal(last) {
			fw.lastModTime[file] = stat.ModTime()
			changed = true
		}
	}
	return changed
}
