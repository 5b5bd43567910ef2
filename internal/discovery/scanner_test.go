package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuniCore/Puni/internal/report"
	"github.com/PuniCore/Puni/internal/userdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	host    string
	plugins string
	modules string
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newFixture lays out a host with every provenance kind represented.
func newFixture(t *testing.T) fixture {
	t.Helper()
	host := t.TempDir()
	f := fixture{
		host:    host,
		plugins: filepath.Join(host, "plugins"),
		modules: filepath.Join(host, "modules"),
	}

	write(t, filepath.Join(host, "package.json"), `{
  "name": "host-bot",
  "puni": {"apps": "apps"},
  "dependencies": {"puni-plugin-dep": "^1.0.0", "axios": "^1.0.0", "@types/puni": "^1.0.0", "left-pad": "1.0.0"},
  "devDependencies": {"puni-plugin-old": "^1.0.0"}
}`)
	write(t, filepath.Join(host, "apps", "root.go"), "package apps\n")

	// app kind
	write(t, filepath.Join(f.plugins, "puni-plugin-hello", "hello.go"), "package hello\n")
	write(t, filepath.Join(f.plugins, "puni-plugin-hello", "nested", "more.go"), "package nested\n")
	write(t, filepath.Join(f.plugins, "puni-plugin-hello", "hello_test.go"), "package hello\n")
	write(t, filepath.Join(f.plugins, "puni-plugin-hello", "README.md"), "x")
	// unprefixed folder is ignored
	write(t, filepath.Join(f.plugins, "other", "x.go"), "package other\n")

	// git kind, compatible
	write(t, filepath.Join(f.plugins, "puni-plugin-git", "package.json"), `{
  "name": "puni-plugin-git",
  "version": "1.0.0",
  "main": "index.go",
  "engines": {"puni": ">=1.0.0"},
  "puni": {
    "main": "src/index.go",
    "apps": ["apps", "missing"],
    "source-apps": "src/apps",
    "env": [{"key": "GIT_TOKEN", "value": "", "comment": "token"}]
  }
}`)
	write(t, filepath.Join(f.plugins, "puni-plugin-git", "apps", "a.go"), "package apps\n")
	write(t, filepath.Join(f.plugins, "puni-plugin-git", "src", "apps", "b.go"), "package apps\n")
	write(t, filepath.Join(f.plugins, "puni-plugin-git", "index.go"), "package main\n")
	write(t, filepath.Join(f.plugins, "puni-plugin-git", "src", "index.go"), "package main\n")

	// git kind, incompatible
	write(t, filepath.Join(f.plugins, "puni-plugin-future", "package.json"), `{
  "name": "puni-plugin-future",
  "engines": {"puni": ">=9.0.0"},
  "puni": {}
}`)

	// npm kinds
	write(t, filepath.Join(f.modules, "puni-plugin-dep", "package.json"), `{
  "name": "puni-plugin-dep",
  "main": "index.go",
  "puni": {"apps": "lib/apps", "env": [{"key": "DEP_MODE", "value": "fast"}]}
}`)
	write(t, filepath.Join(f.modules, "puni-plugin-dep", "lib", "apps", "c.go"), "package apps\n")
	write(t, filepath.Join(f.modules, "puni-plugin-old", "package.json"), `{
  "name": "puni-plugin-old",
  "engines": {"puni": "<0.5.0"},
  "puni": {"apps": "apps"}
}`)
	write(t, filepath.Join(f.modules, "axios", "package.json"), `{"name": "axios", "puni": {"apps": "apps"}}`)
	write(t, filepath.Join(f.modules, "@types", "puni", "package.json"), `{"name": "@types/puni", "puni": {}}`)
	write(t, filepath.Join(f.modules, "left-pad", "package.json"), `{"name": "left-pad"}`)

	return f
}

func (f fixture) scanner(t *testing.T, mutate func(*Options)) *Scanner {
	opts := Options{
		PluginsDir:    f.plugins,
		HostDir:       f.host,
		ModulesDir:    "modules",
		EngineVersion: "1.2.0",
		EnvFile:       filepath.Join(f.host, ".env"),
		Logger:        zaptest.NewLogger(t),
	}
	if mutate != nil {
		mutate(&opts)
	}
	s := New(opts)
	t.Cleanup(s.Reset)
	return s
}

func idStrings(ids []Identifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func TestScanner_ListAll(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, nil)

	ids, err := s.List(context.Background(), FilterAll, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"app:puni-plugin-hello",
		"git:puni-plugin-git",
		"root:host-bot",
		"npm:puni-plugin-dep",
	}, idStrings(ids))

	counts := s.Issues().CountByKind()
	assert.Equal(t, 2, counts[report.KindCompatibility])
	for _, issue := range s.Issues().Issues() {
		if issue.Kind == report.KindCompatibility {
			assert.True(t, errors.Is(issue.Err, ErrIncompatible))
		}
	}
}

func TestScanner_ListByFilter(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, nil)
	ctx := context.Background()

	apps, err := s.List(ctx, FilterApp, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"app:puni-plugin-hello"}, idStrings(apps))

	gits, err := s.List(ctx, FilterGit, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"git:puni-plugin-git", "root:host-bot"}, idStrings(gits))

	npms, err := s.List(ctx, FilterNpm, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"npm:puni-plugin-dep"}, idStrings(npms))

	_, err = s.List(ctx, Filter("bogus"), false)
	assert.ErrorIs(t, err, ErrDiscovery)
}

func TestScanner_ExcludesListedDependencies(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, nil)

	ids, err := s.List(context.Background(), FilterNpm, false)
	require.NoError(t, err)
	for _, id := range ids {
		assert.NotEqual(t, "axios", id.Name)
		assert.NotEqual(t, "@types/puni", id.Name)
	}
	assert.True(t, s.Excluded("axios"))
	assert.True(t, s.Excluded("@types/anything"))
	assert.False(t, s.Excluded("puni-plugin-dep"))
}

func TestScanner_CacheAndForce(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, nil)
	ctx := context.Background()

	first, err := s.List(ctx, FilterApp, false)
	require.NoError(t, err)

	write(t, filepath.Join(f.plugins, "puni-plugin-new", "x.go"), "package x\n")

	cached, err := s.List(ctx, FilterApp, false)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	// Other filters are not affected by a forced rescan of one filter.
	_, err = s.List(ctx, FilterNpm, false)
	require.NoError(t, err)

	fresh, err := s.List(ctx, FilterApp, true)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	_, ok := s.lists.get(FilterNpm)
	assert.True(t, ok, "forcing one filter must keep other filters cached")
}

func TestScanner_CacheExpires(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, func(o *Options) { o.TTL = 30 * time.Millisecond })
	ctx := context.Background()

	_, err := s.List(ctx, FilterApp, false)
	require.NoError(t, err)
	write(t, filepath.Join(f.plugins, "puni-plugin-new", "x.go"), "package x\n")

	require.Eventually(t, func() bool {
		_, ok := s.lists.get(FilterApp)
		return !ok
	}, time.Second, 5*time.Millisecond)

	ids, err := s.List(ctx, FilterApp, false)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestScanner_Info(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, nil)

	descs, err := s.Info(context.Background(), FilterAll, false, false)
	require.NoError(t, err)
	require.Len(t, descs, 4)

	byName := map[string]*Descriptor{}
	for _, d := range descs {
		byName[d.Name] = d
		assert.Equal(t, -1, d.ID)
	}

	hello := byName["puni-plugin-hello"]
	require.NotNil(t, hello)
	assert.Equal(t, KindApp, hello.Kind)
	require.Len(t, hello.Apps, 2)
	assert.Equal(t, "hello.go", filepath.Base(hello.Apps[0]))
	assert.Equal(t, "more.go", filepath.Base(hello.Apps[1]))
	assert.Equal(t, "", hello.EntryFile())

	git := byName["puni-plugin-git"]
	require.NotNil(t, git)
	require.Len(t, git.Apps, 1)
	assert.Equal(t, "a.go", filepath.Base(git.Apps[0]))
	require.Len(t, git.AllApps, 1)
	assert.Equal(t, "index.go", filepath.Base(git.EntryFile()))
	assert.Equal(t, filepath.Join(git.Dir, "index.go"), git.EntryFile())

	dep := byName["puni-plugin-dep"]
	require.NotNil(t, dep)
	require.Len(t, dep.Apps, 1)
	assert.Equal(t, "c.go", filepath.Base(dep.Apps[0]))

	root := byName["host-bot"]
	require.NotNil(t, root)
	assert.Equal(t, KindRoot, root.Kind)
	assert.Len(t, root.Apps, 1)

	// Without collectEnv nothing is written.
	_, err = os.Stat(filepath.Join(f.host, ".env"))
	assert.True(t, os.IsNotExist(err))

	again, err := s.Info(context.Background(), FilterAll, false, false)
	require.NoError(t, err)
	assert.Same(t, descs[0], again[0])
}

func TestScanner_InfoSourceModeAndEnv(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, func(o *Options) { o.SourceMode = true })

	descs, err := s.Info(context.Background(), FilterAll, false, true)
	require.NoError(t, err)

	var git *Descriptor
	for _, d := range descs {
		if d.Name == "puni-plugin-git" {
			git = d
		}
	}
	require.NotNil(t, git)
	require.Len(t, git.Apps, 1)
	assert.Equal(t, "b.go", filepath.Base(git.Apps[0]))
	assert.Equal(t, filepath.Join(git.Dir, "src", "index.go"), git.EntryFile())

	entries, err := userdata.ParseEnvFile(filepath.Join(f.host, ".env"))
	require.NoError(t, err)
	keys := map[string]string{}
	for _, e := range entries {
		keys[e.Key] = e.Value
	}
	assert.Equal(t, map[string]string{"GIT_TOKEN": "", "DEP_MODE": "fast"}, keys)
}

func TestScanner_Resolve(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, nil)
	ctx := context.Background()

	d, err := s.Resolve(ctx, Identifier{Kind: KindGit, Name: "puni-plugin-git"})
	require.NoError(t, err)
	assert.Equal(t, "puni-plugin-git", d.Name)

	_, err = s.Resolve(ctx, Identifier{Kind: KindGit, Name: "puni-plugin-gone"})
	assert.ErrorIs(t, err, ErrDiscovery)
}

func TestParseIdentifier(t *testing.T) {
	id, err := ParseIdentifier("npm:@scope/puni-plugin-x")
	require.NoError(t, err)
	assert.Equal(t, Identifier{Kind: KindNpm, Name: "@scope/puni-plugin-x"}, id)

	for _, bad := range []string{"", "git", "git:", "zip:thing"} {
		_, err := ParseIdentifier(bad)
		assert.Error(t, err, bad)
	}
}

func TestDescriptor_OwnsAndStatic(t *testing.T) {
	f := newFixture(t)
	s := f.scanner(t, nil)

	descs, err := s.Info(context.Background(), FilterAll, false, false)
	require.NoError(t, err)
	for _, d := range descs {
		switch d.Name {
		case "puni-plugin-hello":
			assert.True(t, d.Owns(filepath.Join(d.Dir, "brand-new.go")))
			assert.Equal(t, []string{"config", "data", "resources"}, d.ScaffoldDirs())
			assert.Equal(t, []string{filepath.Join(d.Dir, "resource"), filepath.Join(d.Dir, "resources")}, d.StaticDirs())
		case "puni-plugin-git":
			assert.True(t, d.Owns(filepath.Join(d.Dir, "apps", "new.go")))
			assert.False(t, d.Owns(filepath.Join(d.Dir, "other", "new.go")))
		}
	}
}
