package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuniCore/Puni/internal/branding"
	"github.com/PuniCore/Puni/internal/compat"
	"github.com/PuniCore/Puni/internal/manifest"
	"github.com/PuniCore/Puni/internal/report"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDiscovery marks a manifest that could not be read or validated.
	ErrDiscovery = errors.New("discovery failed")
	// ErrIncompatible marks a package whose engine range excludes the
	// running version.
	ErrIncompatible = errors.New("incompatible engine version")
)

// DefaultTTL is how long a scan result stays cached.
const DefaultTTL = 60 * time.Second

// DefaultExclude lists host dependencies that are never plugins.
var DefaultExclude = []string{
	"@types/express",
	"@types/lodash",
	"@types/node-schedule",
	"@types/ws",
	"art-template",
	"axios",
	"chalk",
	"chokidar",
	"commander",
	"dotenv",
	"express",
	"level",
	"lodash",
	"log4js",
	"node-schedule",
	"redis",
	"ws",
	"yaml",
	"sqlite3",
}

// typeOnlyPrefix marks type-declaration-only dependencies.
const typeOnlyPrefix = "@types"

// Options configures a Scanner.
type Options struct {
	// PluginsDir holds app and git plugin folders.
	PluginsDir string
	// HostDir holds the host manifest; it is also checked as a root plugin.
	HostDir string
	// ModulesDir is where dependencies are installed, relative to HostDir
	// unless absolute.
	ModulesDir string
	// EngineVersion is the running engine version checked against ranges.
	EngineVersion string
	// SourceMode prefers source-apps and the plugin block's main.
	SourceMode bool
	// TTL overrides DefaultTTL.
	TTL time.Duration
	// Extensions are the app file extensions; defaults to ".go".
	Extensions []string
	// Exclude overrides DefaultExclude.
	Exclude []string
	// EnvFile receives env declarations on a full detail pass.
	EnvFile string
	Logger  *zap.Logger
}

// Scanner enumerates candidate packages and builds descriptors.
// It is safe for concurrent use.
type Scanner struct {
	opts    Options
	log     *zap.Logger
	exclude map[string]bool

	lists *ttlCache[[]Identifier]
	infos *ttlCache[[]*Descriptor]

	// initialized flips after the first detail pass; compatibility
	// mismatches are logged loudly only before that.
	initialized atomic.Bool

	mu   sync.Mutex
	last *report.Report
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".go"}
	}
	if opts.Exclude == nil {
		opts.Exclude = DefaultExclude
	}
	if opts.ModulesDir == "" {
		opts.ModulesDir = "modules"
	}
	if !filepath.IsAbs(opts.ModulesDir) {
		opts.ModulesDir = filepath.Join(opts.HostDir, opts.ModulesDir)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		exclude[name] = true
	}
	return &Scanner{
		opts:    opts,
		log:     log.Named("discovery"),
		exclude: exclude,
		lists:   newTTLCache[[]Identifier](opts.TTL),
		infos:   newTTLCache[[]*Descriptor](opts.TTL),
		last:    report.New(),
	}
}

// Issues returns the problems found by the most recent uncached scan.
func (s *Scanner) Issues() *report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset drops every cached result.
func (s *Scanner) Reset() {
	s.lists.clear()
	s.infos.clear()
}

// List returns the identifiers of every candidate matching filter. Results
// are cached per filter; force clears that filter's cache first.
func (s *Scanner) List(ctx context.Context, filter Filter, force bool) ([]Identifier, error) {
	if _, err := ParseFilter(string(filter)); err != nil {
		return nil, err
	}
	if force {
		s.lists.reset(filter)
		s.infos.reset(filter)
	}
	if ids, ok := s.lists.get(filter); ok {
		return ids, nil
	}
	stamp := s.lists.stamp(filter)

	rep := report.New()
	ids, err := s.scan(ctx, filter, rep)
	if err != nil {
		return nil, err
	}
	s.setLast(rep)
	s.lists.set(filter, ids, stamp)
	return ids, nil
}

// Info returns descriptors for every candidate matching filter. When
// collectEnv is set, env declarations gathered during a fresh pass are
// merged into the configured env file.
func (s *Scanner) Info(ctx context.Context, filter Filter, force, collectEnv bool) ([]*Descriptor, error) {
	if _, err := ParseFilter(string(filter)); err != nil {
		return nil, err
	}
	if force {
		s.lists.reset(filter)
		s.infos.reset(filter)
	}
	if infos, ok := s.infos.get(filter); ok {
		return infos, nil
	}
	listStamp, infoStamp := s.lists.stamp(filter), s.infos.stamp(filter)

	rep := report.New()
	ids, err := s.scan(ctx, filter, rep)
	if err != nil {
		return nil, err
	}
	s.lists.set(filter, ids, listStamp)

	descs := s.describe(ctx, ids, collectEnv, rep)
	s.setLast(rep)
	s.infos.set(filter, descs, infoStamp)
	s.initialized.Store(true)
	return descs, nil
}

// Resolve rebuilds the descriptor of exactly one identifier, bypassing the
// cache. It fails when the package no longer exists.
func (s *Scanner) Resolve(ctx context.Context, id Identifier) (*Descriptor, error) {
	rep := report.New()
	descs := s.describe(ctx, []Identifier{id}, false, rep)
	if len(descs) == 0 {
		if issues := rep.Issues(); len(issues) > 0 {
			return nil, issues[0].Err
		}
		return nil, fmt.Errorf("%w: %s not found", ErrDiscovery, id)
	}
	return descs[0], nil
}

func (s *Scanner) setLast(rep *report.Report) {
	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()
}

func (s *Scanner) scan(ctx context.Context, filter Filter, rep *report.Report) ([]Identifier, error) {
	var (
		apps, gits, npms []Identifier
		entries          []os.DirEntry
	)
	if filter != FilterNpm {
		var err error
		entries, err = os.ReadDir(s.opts.PluginsDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading plugins dir %s: %w", s.opts.PluginsDir, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if filter == FilterAll || filter == FilterApp {
		g.Go(func() error {
			apps = s.scanApps(entries)
			return nil
		})
	}
	if filter == FilterAll || filter == FilterGit {
		g.Go(func() error {
			gits = s.scanGits(entries, rep)
			return nil
		})
	}
	if filter == FilterAll || filter == FilterNpm {
		g.Go(func() error {
			npms = s.scanNpm(ctx, rep)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]Identifier, 0, len(apps)+len(gits)+len(npms))
	ids = append(ids, apps...)
	ids = append(ids, gits...)
	ids = append(ids, npms...)
	return ids, nil
}

func (s *Scanner) isPluginDir(e os.DirEntry) bool {
	return e.IsDir() && strings.HasPrefix(e.Name(), branding.PluginPrefix())
}

// scanApps returns prefixed folders without a manifest.
func (s *Scanner) scanApps(entries []os.DirEntry) []Identifier {
	var ids []Identifier
	for _, e := range entries {
		if !s.isPluginDir(e) {
			continue
		}
		if manifest.Find(filepath.Join(s.opts.PluginsDir, e.Name())) != "" {
			continue
		}
		ids = append(ids, Identifier{Kind: KindApp, Name: e.Name()})
	}
	return ids
}

// scanGits returns prefixed folders with a compatible manifest, followed by
// the host dir when it is itself a plugin.
func (s *Scanner) scanGits(entries []os.DirEntry, rep *report.Report) []Identifier {
	var ids []Identifier
	for _, e := range entries {
		if !s.isPluginDir(e) {
			continue
		}
		path := manifest.Find(filepath.Join(s.opts.PluginsDir, e.Name()))
		if path == "" {
			continue
		}
		if _, ok := s.checkManifest(e.Name(), path, rep); !ok {
			continue
		}
		ids = append(ids, Identifier{Kind: KindGit, Name: e.Name()})
	}

	if path := manifest.Find(s.opts.HostDir); path != "" {
		pkg, err := manifest.Parse(path)
		if err == nil && pkg.Name != "" && pkg.IsPlugin() {
			if _, ok := s.checkManifest(pkg.Name, path, rep); ok {
				ids = append(ids, Identifier{Kind: KindRoot, Name: pkg.Name})
			}
		}
	}
	return ids
}

// scanNpm returns host dependencies that declare the plugin block.
func (s *Scanner) scanNpm(ctx context.Context, rep *report.Report) []Identifier {
	hostPath := manifest.Find(s.opts.HostDir)
	if hostPath == "" {
		s.log.Debug("no host manifest, skipping dependency scan", zap.String("dir", s.opts.HostDir))
		return nil
	}
	host, err := manifest.Parse(hostPath)
	if err != nil {
		rep.Add(report.KindDiscovery, "host", hostPath, fmt.Errorf("%w: %w", ErrDiscovery, err))
		s.log.Error("reading host manifest failed", zap.String("path", hostPath), zap.Error(err))
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, name := range host.AllDependencies() {
		if seen[name] || s.Excluded(name) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)

	found := make([]bool, len(names))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range names {
		g.Go(func() error {
			path := manifest.Find(filepath.Join(s.opts.ModulesDir, filepath.FromSlash(name)))
			if path == "" {
				return nil
			}
			pkg, err := manifest.Parse(path)
			if err != nil || !pkg.IsPlugin() {
				return nil
			}
			_, found[i] = s.checkManifest(name, path, rep)
			return nil
		})
	}
	_ = g.Wait()

	var ids []Identifier
	for i, name := range names {
		if found[i] {
			ids = append(ids, Identifier{Kind: KindNpm, Name: name})
		}
	}
	return ids
}

// Excluded reports whether a dependency name is never treated as a plugin.
func (s *Scanner) Excluded(name string) bool {
	return s.exclude[name] || strings.HasPrefix(name, typeOnlyPrefix)
}

// checkManifest parses, validates and compatibility-checks a manifest.
// Failures are logged and recorded, never returned.
func (s *Scanner) checkManifest(name, path string, rep *report.Report) (*manifest.Package, bool) {
	pkg, err := manifest.Parse(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDiscovery, err)
		rep.Add(report.KindDiscovery, name, path, err)
		s.log.Error("reading manifest failed", zap.String("package", name), zap.Error(err))
		return nil, false
	}

	result, err := manifest.ValidateFile(path)
	if err != nil || !result.Valid {
		if err == nil {
			msgs := make([]string, 0, len(result.Issues))
			for _, issue := range result.Issues {
				msgs = append(msgs, issue.String())
			}
			err = fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		err = fmt.Errorf("%w: invalid %s block: %w", ErrDiscovery, branding.ManifestKey(), err)
		rep.Add(report.KindDiscovery, name, path, err)
		s.log.Error("manifest validation failed", zap.String("package", name), zap.Error(err))
		return nil, false
	}

	rng := pkg.EngineRange(branding.ManifestKey())
	if rng == "" {
		return pkg, true
	}
	ok, cerr := compat.Satisfies(rng, s.opts.EngineVersion)
	if ok {
		return pkg, true
	}

	err = fmt.Errorf("%w: requires %s %s, running %s", ErrIncompatible, branding.ManifestKey(), rng, s.opts.EngineVersion)
	if cerr != nil {
		err = fmt.Errorf("%w: %w", err, cerr)
	}
	rep.Add(report.KindCompatibility, name, path, err)
	if s.initialized.Load() {
		s.log.Debug("skipping incompatible package", zap.String("package", name), zap.Error(err))
	} else {
		s.log.Error("skipping incompatible package", zap.String("package", name), zap.Error(err))
	}
	return nil, false
}
