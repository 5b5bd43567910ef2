package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/registry"
	"github.com/PuniCore/Puni/internal/report"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before it triggers a
// reload.
const DefaultDebounce = 500 * time.Millisecond

// Reloader is the subset of the plugin manager the watcher drives.
type Reloader interface {
	Snapshot() *registry.Snapshot
	ReloadPackage(ctx context.Context, kind discovery.Kind, name string) (*report.Report, error)
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Tick is how often settled events are collected; defaults to a fifth
	// of Debounce.
	Tick time.Duration
	// Extensions limits which files trigger reloads; defaults to ".go".
	Extensions []string
	Logger     *zap.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Events        int
	Reloads       int
	ReloadErrors  int
	Unowned       int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches the app directories of every registered package.
type Watcher struct {
	mu          sync.Mutex
	fs          *fsnotify.Watcher
	reloader    Reloader
	log         *zap.Logger
	debounceDur time.Duration
	tick        time.Duration
	exts        []string
	debounceMap map[string]time.Time
	watched     map[string]bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// New creates a stopped Watcher.
func New(r Reloader, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Tick <= 0 {
		opts.Tick = opts.Debounce / 5
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".go"}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		fs:          fw,
		reloader:    r,
		log:         log.Named("watch"),
		debounceDur: opts.Debounce,
		tick:        opts.Tick,
		exts:        opts.Extensions,
		debounceMap: make(map[string]time.Time),
		watched:     make(map[string]bool),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start watches the directories of the current snapshot and processes
// events in the background until Stop is called or ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.Sync()
	go w.run(ctx)
	return nil
}

// Stop ends event processing and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fs.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.fs.Close(); err != nil {
		w.log.Warn("closing watcher failed", zap.Error(err))
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Watched returns the watched directories in lexical order.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for dir := range w.watched {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Sync adds every app directory of the current snapshot, recursively, that
// is not watched yet. Scaffold packages are watched from their root.
func (w *Watcher) Sync() {
	s := w.reloader.Snapshot()
	for _, id := range s.PackageIDs() {
		d := s.Packages[id]
		roots := d.AllApps
		if d.Kind == discovery.KindApp {
			roots = []string{d.Dir}
		}
		for _, root := range roots {
			w.addTree(root)
		}
	}
}

func (w *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !e.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(e.Name(), ".") {
			return filepath.SkipDir
		}
		w.addDir(path)
		return nil
	})
}

func (w *Watcher) addDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return
	}
	if err := w.fs.Add(dir); err != nil {
		w.log.Warn("watching directory failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	w.watched[dir] = true
	w.log.Debug("watching directory", zap.String("dir", dir))
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addTree(ev.Name)
			return
		}
	}
	if !w.relevant(ev.Name) {
		return
	}

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventPath = ev.Name
	w.stats.LastEventTime = time.Now()
	w.debounceMap[ev.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) relevant(path string) bool {
	if strings.HasSuffix(path, "_test.go") {
		return false
	}
	return slices.Contains(w.exts, filepath.Ext(path))
}

// processDebounced reloads, once each, the packages owning files that have
// been quiet for the debounce window.
func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()
	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)

	s := w.reloader.Snapshot()
	var targets []discovery.Identifier
	for _, path := range settled {
		d, ok := s.FindPackageByFile(path)
		if !ok {
			w.mu.Lock()
			w.stats.Unowned++
			w.mu.Unlock()
			w.log.Debug("changed file has no package", zap.String("file", path))
			continue
		}
		if id := d.Identifier(); !slices.Contains(targets, id) {
			targets = append(targets, id)
		}
	}

	for _, id := range targets {
		w.log.Info("reloading package", zap.String("package", id.String()))
		_, err := w.reloader.ReloadPackage(ctx, id.Kind, id.Name)
		w.mu.Lock()
		if err != nil {
			w.stats.ReloadErrors++
		} else {
			w.stats.Reloads++
		}
		w.mu.Unlock()
		if err != nil {
			w.log.Error("reloading package failed", zap.String("package", id.String()), zap.Error(err))
		}
	}
	w.Sync()
}
