package loader

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// YaegiOptions configures a YaegiImporter.
type YaegiOptions struct {
	// GoPath lets interpreted code import vendored source packages.
	GoPath string
	// Symbols are extra binary packages exposed to interpreted code, in
	// addition to the standard library and the plugin API.
	Symbols []interp.Exports
}

// YaegiImporter interprets a single Go source file per module and exports
// its exported top-level functions and variables.
type YaegiImporter struct {
	opts YaegiOptions

	mu    sync.Mutex
	cache map[string]Exports
}

// NewYaegiImporter creates an importer.
func NewYaegiImporter(opts YaegiOptions) *YaegiImporter {
	return &YaegiImporter{opts: opts, cache: make(map[string]Exports)}
}

// Import implements Importer.
func (y *YaegiImporter) Import(ctx context.Context, path string, refresh bool) (exports Exports, err error) {
	key := normalizePath(path)
	if !refresh {
		y.mu.Lock()
		cached, ok := y.cache[key]
		y.mu.Unlock()
		if ok {
			return append(Exports(nil), cached...), nil
		}
	}

	src, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	pkgName, names, err := exportedNames(key, src)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			exports = nil
			err = fmt.Errorf("interpreting %s: panic: %v", key, r)
		}
	}()

	i := interp.New(interp.Options{GoPath: y.opts.GoPath})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("loading plugin symbols: %w", err)
	}
	for _, sym := range y.opts.Symbols {
		if err := i.Use(sym); err != nil {
			return nil, fmt.Errorf("loading extra symbols: %w", err)
		}
	}

	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return nil, fmt.Errorf("interpreting %s: %w", key, err)
	}

	for _, name := range names {
		v, err := i.EvalWithContext(ctx, pkgName+"."+name)
		if err != nil {
			return nil, fmt.Errorf("resolving %s.%s: %w", pkgName, name, err)
		}
		if !v.IsValid() || !v.CanInterface() {
			continue
		}
		exports = append(exports, Export{Name: name, Value: v.Interface()})
	}

	y.mu.Lock()
	y.cache[key] = append(Exports(nil), exports...)
	y.mu.Unlock()
	return exports, nil
}

// Forget drops a cached module so the next Import re-interprets it.
func (y *YaegiImporter) Forget(path string) {
	y.mu.Lock()
	delete(y.cache, normalizePath(path))
	y.mu.Unlock()
}

// exportedNames parses src and returns its package name plus the exported
// top-level functions and variables in declaration order.
func exportedNames(path string, src []byte) (string, []string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return "", nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var names []string
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.IsExported() && d.Name.Name != "Main" {
				names = append(names, d.Name.Name)
			}
		case *ast.GenDecl:
			if d.Tok != token.VAR {
				continue
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, n := range vs.Names {
					if n.IsExported() {
						names = append(names, n.Name)
					}
				}
			}
		}
	}
	return file.Name.Name, names, nil
}
