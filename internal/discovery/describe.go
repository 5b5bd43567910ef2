package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/PuniCore/Puni/internal/manifest"
	"github.com/PuniCore/Puni/internal/report"
	"github.com/PuniCore/Puni/internal/userdata"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// describe builds descriptors for ids concurrently. A failure for one id is
// recorded and skipped. Output order follows ids.
func (s *Scanner) describe(ctx context.Context, ids []Identifier, collectEnv bool, rep *report.Report) []*Descriptor {
	results := make([]*Descriptor, len(ids))

	var (
		envMu sync.Mutex
		env   []userdata.EnvDecl
	)
	addEnv := func(pkg string, decls []manifest.EnvDecl) {
		if !collectEnv || len(decls) == 0 {
			return
		}
		envMu.Lock()
		defer envMu.Unlock()
		for _, d := range decls {
			env = append(env, userdata.EnvDecl{Package: pkg, Key: d.Key, Value: d.Value, Comment: d.Comment})
		}
	}

	g, _ := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			d, decls, err := s.build(id)
			if err != nil {
				rep.Add(report.KindDiscovery, id.Name, "", err)
				s.log.Warn("describing package failed", zap.Stringer("id", id), zap.Error(err))
				return nil
			}
			results[i] = d
			addEnv(d.Name, decls)
			return nil
		})
	}
	_ = g.Wait()

	descs := make([]*Descriptor, 0, len(results))
	for _, d := range results {
		if d != nil {
			descs = append(descs, d)
		}
	}

	if collectEnv {
		s.writeEnv(env, rep)
	}
	return descs
}

func (s *Scanner) writeEnv(env []userdata.EnvDecl, rep *report.Report) {
	if len(env) == 0 || s.opts.EnvFile == "" {
		s.log.Debug("no env declarations collected")
		return
	}
	added, err := userdata.MergeEnv(s.opts.EnvFile, env)
	if err != nil {
		rep.Add(report.KindDiscovery, "env", s.opts.EnvFile, err)
		s.log.Error("writing env declarations failed", zap.String("file", s.opts.EnvFile), zap.Error(err))
		return
	}
	if len(added) > 0 {
		s.log.Info("added env declarations", zap.String("file", s.opts.EnvFile), zap.Strings("keys", added))
	}
}

// dirOf returns the on-disk directory of an identifier.
func (s *Scanner) dirOf(id Identifier) (string, error) {
	var dir string
	switch id.Kind {
	case KindApp, KindGit:
		dir = filepath.Join(s.opts.PluginsDir, id.Name)
	case KindRoot:
		dir = s.opts.HostDir
	case KindNpm:
		dir = filepath.Join(s.opts.ModulesDir, filepath.FromSlash(id.Name))
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrDiscovery, id.Kind)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %w", ErrDiscovery, dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDiscovery, id, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrDiscovery, abs)
	}
	return abs, nil
}

// build normalizes one identifier into a descriptor and returns the env
// declarations found in its manifest.
func (s *Scanner) build(id Identifier) (*Descriptor, []manifest.EnvDecl, error) {
	dir, err := s.dirOf(id)
	if err != nil {
		return nil, nil, err
	}

	if id.Kind == KindApp {
		apps, err := filesByExt(dir, s.opts.Extensions)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: listing %s: %w", ErrDiscovery, dir, err)
		}
		return newDescriptor(id.Kind, id.Name, dir, apps, []string{dir}, s.opts.SourceMode), nil, nil
	}

	d := newDescriptor(id.Kind, id.Name, dir, nil, nil, s.opts.SourceMode)
	pkg, err := d.Manifest()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	if pkg.Plugin == nil {
		return d, nil, nil
	}

	var declared []string
	switch {
	case id.Kind == KindNpm:
		declared = pkg.Plugin.Apps
	case s.opts.SourceMode && len(pkg.Plugin.SourceApps) > 0:
		declared = pkg.Plugin.SourceApps
	default:
		declared = pkg.Plugin.Apps
	}
	if id.Kind == KindNpm && len(declared) == 0 {
		return d, nil, nil
	}

	for _, rel := range declared {
		appDir := filepath.Join(dir, filepath.FromSlash(rel))
		info, err := os.Stat(appDir)
		if err != nil || !info.IsDir() {
			continue
		}
		files, err := filesByExt(appDir, s.opts.Extensions)
		if err != nil {
			s.log.Warn("listing app dir failed", zap.String("dir", appDir), zap.Error(err))
			continue
		}
		d.Apps = append(d.Apps, files...)
		d.AllApps = append(d.AllApps, appDir)
	}
	return d, pkg.Plugin.Env, nil
}
