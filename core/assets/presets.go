package assets

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"slidecast/logger"
)

// PresetCatalog tracks the set of selectable preset audio tracks, mirroring
// the .mp3 files in the bgm directory. A filesystem watcher keeps the
// in-memory catalog current when tracks are added or removed.
type PresetCatalog struct {
	dir     string
	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	names []string
}

// NewPresetCatalog scans dir and starts watching it for changes. The
// directory is created if absent so the watcher has something to attach to.
func NewPresetCatalog(dir string) (*PresetCatalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	c := &PresetCatalog{dir: dir}
	if err := c.rescan(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	go c.watch()
	return c, nil
}

// Names returns the catalog's preset names, sorted.
func (c *PresetCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether a preset with the given name exists.
func (c *PresetCatalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

// Close stops the filesystem watcher.
func (c *PresetCatalog) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func (c *PresetCatalog) watch() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if err := c.rescan(); err != nil {
					logger.Warn("preset catalog rescan failed",
						logger.String("dir", c.dir), logger.ErrorField(err))
				}
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("preset catalog watcher error", logger.ErrorField(err))
		}
	}
}

func (c *PresetCatalog) rescan() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.EqualFold(filepath.Ext(name), ".mp3") {
			names = append(names, strings.TrimSuffix(name, filepath.Ext(name)))
		}
	}
	sort.Strings(names)

	c.mu.Lock()
	c.names = names
	c.mu.Unlock()
	return nil
}
