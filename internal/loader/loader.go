package loader

import (
	"context"
	"fmt"
	"runtime"

	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/report"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// InitExport is the entry module export run once before app files are
// classified.
const InitExport = "Init"

// FileResult is the outcome of importing one file. A failed import has an
// empty Exports and a non-nil Err.
type FileResult struct {
	Path    string
	Exports Exports
	Err     error
}

// PackageResult is the outcome of loading one package.
type PackageResult struct {
	Desc    *discovery.Descriptor
	Entry   *FileResult
	InitErr error
	// Files follows the order of Desc.Apps.
	Files []FileResult
}

// Failed returns the file results that carry an error, entry first.
func (r *PackageResult) Failed() []FileResult {
	var out []FileResult
	if r.Entry != nil && r.Entry.Err != nil {
		out = append(out, *r.Entry)
	}
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Loader imports package modules through an Importer.
type Loader struct {
	imp         Importer
	log         *zap.Logger
	concurrency int
}

// Options configures a Loader.
type Options struct {
	Importer Importer
	Logger   *zap.Logger
	// Concurrency bounds concurrent file imports per package; defaults to
	// GOMAXPROCS.
	Concurrency int
}

// New creates a Loader.
func New(opts Options) *Loader {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Loader{imp: opts.Importer, log: log.Named("loader"), concurrency: opts.Concurrency}
}

// LoadPackage imports the entry module (running its Init hook) and then all
// app files concurrently. It waits for every import to settle; failures are
// recorded in rep and never abort sibling imports.
func (l *Loader) LoadPackage(ctx context.Context, d *discovery.Descriptor, refresh bool, rep *report.Report) *PackageResult {
	res := &PackageResult{Desc: d, Files: make([]FileResult, len(d.Apps))}

	// Step 1: entry module and its init hook.
	if entry := d.EntryFile(); entry != "" {
		fr := l.importFile(ctx, d, entry, refresh, rep)
		res.Entry = &fr
		if fr.Err == nil {
			res.InitErr = l.runInit(d, fr.Exports)
		}
	}

	// Step 2: app files.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, app := range d.Apps {
		g.Go(func() error {
			res.Files[i] = l.importFile(gctx, d, app, refresh, rep)
			return nil
		})
	}
	_ = g.Wait()

	return res
}

func (l *Loader) importFile(ctx context.Context, d *discovery.Descriptor, path string, refresh bool, rep *report.Report) (fr FileResult) {
	fr.Path = path
	defer func() {
		if r := recover(); r != nil {
			fr.Exports = nil
			fr.Err = fmt.Errorf("%w: %s: panic: %v", ErrLoad, path, r)
		}
		if fr.Err != nil {
			rep.Add(report.KindLoad, d.Name, path, fr.Err)
			l.log.Debug("import failed", zap.String("package", d.Name), zap.String("file", path), zap.Error(fr.Err))
		}
	}()

	if l.imp == nil {
		fr.Err = fmt.Errorf("%w: no importer configured", ErrLoad)
		return fr
	}
	exports, err := l.imp.Import(ctx, path, refresh)
	if err != nil {
		fr.Err = fmt.Errorf("%w: %w", ErrLoad, err)
		return fr
	}
	fr.Exports = exports
	return fr
}

// runInit invokes the entry module's Init export. Failures are logged.
func (l *Loader) runInit(d *discovery.Descriptor, exports Exports) (err error) {
	v, ok := exports.Lookup(InitExport)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init panicked: %v", r)
		}
		if err != nil {
			l.log.Error("plugin init failed", zap.String("package", d.Name), zap.Error(err))
		} else {
			l.log.Debug("plugin init done", zap.String("package", d.Name))
		}
	}()

	switch fn := v.(type) {
	case func() error:
		return fn()
	case func():
		fn()
		return nil
	default:
		return fmt.Errorf("%s export has unsupported type %T", InitExport, v)
	}
}
