package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/dispatch"
	"github.com/PuniCore/Puni/internal/event"
	"github.com/PuniCore/Puni/internal/loader"
	"github.com/PuniCore/Puni/internal/metrics"
	"github.com/PuniCore/Puni/internal/registry"
	"github.com/PuniCore/Puni/internal/report"
	"github.com/PuniCore/Puni/internal/task"
	"github.com/PuniCore/Puni/internal/userdata"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownPackage is returned when a reload target no longer resolves.
var ErrUnknownPackage = errors.New("unknown package")

// Options configures a Manager.
type Options struct {
	Scanner  *discovery.Scanner
	Importer loader.Importer
	// Runner schedules task capabilities; nil disables scheduling.
	Runner *task.Runner
	// Metrics is optional.
	Metrics *metrics.Metrics
	// DataDir receives per-package scaffold directories.
	DataDir string
	Logger  *zap.Logger
	// Concurrency bounds concurrent package loads; zero means unbounded.
	Concurrency  int
	AuthFailText string
}

// Manager owns the registry and everything that writes to it.
type Manager struct {
	scanner  *discovery.Scanner
	loader   *loader.Loader
	registry *registry.Registry
	dispatch *dispatch.Dispatcher
	metrics  *metrics.Metrics
	dataDir  string
	limit    int
	log      *zap.Logger

	mu     sync.Mutex
	last   *report.Report
	loaded bool
}

// New creates a Manager.
func New(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	regOpts := registry.Options{Logger: log}
	if opts.Runner != nil {
		regOpts.Scheduler = opts.Runner
	}
	reg := registry.New(regOpts)

	dispOpts := dispatch.Options{Logger: log, AuthFailText: opts.AuthFailText}
	if opts.Metrics != nil {
		dispOpts.OnMatch = opts.Metrics.ObserveDispatch
	}

	return &Manager{
		scanner:  opts.Scanner,
		loader:   loader.New(loader.Options{Importer: opts.Importer, Logger: log}),
		registry: reg,
		dispatch: dispatch.New(reg, dispOpts),
		metrics:  opts.Metrics,
		dataDir:  opts.DataDir,
		limit:    opts.Concurrency,
		log:      log.Named("plugin"),
		last:     report.New(),
	}
}

// Snapshot returns the current registry snapshot.
func (m *Manager) Snapshot() *registry.Snapshot {
	return m.registry.Snapshot()
}

// Dispatcher returns the dispatcher bound to the registry.
func (m *Manager) Dispatcher() *dispatch.Dispatcher {
	return m.dispatch
}

// Report returns the issues of the most recent load cycle or reload.
func (m *Manager) Report() *report.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// LoadAll rediscovers every package, loads them concurrently and replaces
// the registry contents in one batch. Env declarations are merged on this
// pass. Per-package problems end up in the returned report; only a failed
// scan returns an error.
func (m *Manager) LoadAll(ctx context.Context) (*report.Report, error) {
	start := time.Now()
	descs, err := m.scanner.Info(ctx, discovery.FilterAll, true, true)
	if err != nil {
		return nil, fmt.Errorf("discovering packages: %w", err)
	}

	rep := report.New()
	rep.Merge(m.scanner.Issues())

	m.mu.Lock()
	refresh := m.loaded
	m.mu.Unlock()

	b := m.registry.Begin(rep)
	prev := m.registry.Snapshot()
	for _, id := range prev.PackageIDs() {
		d := prev.Packages[id]
		b.RemovePackage(d.Kind, d.Name)
	}
	for _, d := range descs {
		b.AddPackage(d)
	}

	results := m.loadPackages(ctx, descs, refresh, rep)
	for _, res := range results {
		m.merge(b, res)
	}
	snap := b.Commit()

	m.finish(rep, true)
	m.logSummary(snap, rep)
	if m.metrics != nil {
		m.metrics.ObserveSnapshot(snap)
		m.metrics.ObserveReport(rep)
		m.metrics.ObserveLoad(time.Since(start))
	}
	return rep, nil
}

// ReloadPackage rediscovers and reloads exactly one package, replacing its
// records and task schedules, and resorts every bucket. It fails with
// ErrUnknownPackage when the package no longer resolves.
func (m *Manager) ReloadPackage(ctx context.Context, kind discovery.Kind, name string) (rep *report.Report, err error) {
	id := discovery.Identifier{Kind: kind, Name: name}
	defer func() {
		if m.metrics != nil {
			m.metrics.ObserveReload(err)
		}
	}()

	d, err := m.scanner.Resolve(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownPackage, id, err)
	}

	rep = report.New()
	b := m.registry.Begin(rep)
	if _, ok := b.RemovePackage(kind, name); !ok {
		m.log.Info("reloading package that was not loaded", zap.String("package", id.String()))
	}
	b.AddPackage(d)
	m.merge(b, m.loadPackage(ctx, d, true, rep))
	snap := b.Commit()

	m.finish(rep, false)
	m.log.Info("package reloaded",
		zap.String("package", id.String()),
		zap.Int("id", d.ID),
		zap.Int("issues", rep.Len()))
	if m.metrics != nil {
		m.metrics.ObserveSnapshot(snap)
		m.metrics.ObserveReport(rep)
	}
	return rep, nil
}

// ListPackages returns the names of packages matching filter.
func (m *Manager) ListPackages(ctx context.Context, filter discovery.Filter, force bool) ([]string, error) {
	ids, err := m.scanner.List(ctx, filter, force)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return names, nil
}

// ListPackageDetails returns descriptors of packages matching filter.
func (m *Manager) ListPackageDetails(ctx context.Context, filter discovery.Filter, force bool) ([]*discovery.Descriptor, error) {
	return m.scanner.Info(ctx, filter, force, false)
}

// SyncEnv rescans every package and appends their env declarations to the
// env file without loading anything.
func (m *Manager) SyncEnv(ctx context.Context) error {
	_, err := m.scanner.Info(ctx, discovery.FilterAll, true, true)
	return err
}

// Dispatch routes e through the registry.
func (m *Manager) Dispatch(ctx context.Context, e *event.Event) bool {
	return m.dispatch.Dispatch(ctx, e)
}

// CallHandler invokes the handlers registered under key.
func (m *Manager) CallHandler(ctx context.Context, key string, args map[string]any) (any, error) {
	return m.dispatch.CallHandler(ctx, key, args)
}

// loadPackages loads every descriptor concurrently and waits for all of
// them; results follow descs order.
func (m *Manager) loadPackages(ctx context.Context, descs []*discovery.Descriptor, refresh bool, rep *report.Report) []*loader.PackageResult {
	results := make([]*loader.PackageResult, len(descs))
	var g errgroup.Group
	if m.limit > 0 {
		g.SetLimit(m.limit)
	}
	for i, d := range descs {
		g.Go(func() error {
			results[i] = m.loadPackage(ctx, d, refresh, rep)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Manager) loadPackage(ctx context.Context, d *discovery.Descriptor, refresh bool, rep *report.Report) *loader.PackageResult {
	if m.dataDir != "" {
		if err := userdata.EnsurePluginDirs(m.dataDir, d.Name, d.ScaffoldDirs()); err != nil {
			m.log.Warn("creating plugin data dirs failed", zap.String("package", d.Name), zap.Error(err))
		}
	}
	return m.loader.LoadPackage(ctx, d, refresh, rep)
}

// merge classifies one package's load result into b.
func (m *Manager) merge(b *registry.Batch, res *loader.PackageResult) {
	d := res.Desc
	failed := res.Failed()
	for _, f := range failed {
		b.RecordMissing(d.Name, f.Err.Error())
		m.log.Error("loading file failed", zap.String("package", d.Name), zap.String("file", f.Path), zap.Error(f.Err))
	}
	for _, f := range res.Files {
		if f.Err == nil {
			b.Classify(d, f.Path, f.Exports)
		}
	}
	b.MarkLoaded(d, len(failed) > 0)
}

func (m *Manager) finish(rep *report.Report, full bool) {
	m.mu.Lock()
	m.last = rep
	if full {
		m.loaded = true
	}
	m.mu.Unlock()
}

func (m *Manager) logSummary(s *registry.Snapshot, rep *report.Report) {
	c := s.Counts
	m.log.Info("plugins loaded",
		zap.Int("packages", c.Packages),
		zap.Int(string(capability.KindCommand), c.Commands),
		zap.Int(string(capability.KindAccept), c.Accepts),
		zap.Int(string(capability.KindTask), c.Tasks),
		zap.Int(string(capability.KindButton), c.Buttons),
		zap.Int("handler.key", c.HandlerKeys),
		zap.Int("handler.fnc", c.HandlerFncs),
		zap.Int("static", len(s.Static)),
		zap.Int("issues", rep.Len()))
	for name, reason := range s.Missing {
		m.log.Warn("package has missing modules", zap.String("package", name), zap.String("reason", reason))
	}
}
