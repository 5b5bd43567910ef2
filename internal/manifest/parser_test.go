package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestParse_PluginManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package.json", `{
  "name": "puni-plugin-demo",
  "version": "1.2.0",
  "main": "index.go",
  "engines": {"puni": ">=1.0.0"},
  "puni": {
    "main": "src/index.go",
    "apps": "apps",
    "source-apps": ["src/apps", "src/extra"],
    "env": [{"key": "DEMO_TOKEN", "value": "", "comment": "api token"}]
  }
}`)

	pkg, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if pkg.Name != "puni-plugin-demo" || pkg.Version != "1.2.0" {
		t.Errorf("Parse() name/version = %q/%q", pkg.Name, pkg.Version)
	}
	if !pkg.IsPlugin() {
		t.Fatal("IsPlugin() = false, want true")
	}
	if got := pkg.EngineRange("puni"); got != ">=1.0.0" {
		t.Errorf("EngineRange() = %q", got)
	}
	if len(pkg.Plugin.Apps) != 1 || pkg.Plugin.Apps[0] != "apps" {
		t.Errorf("Apps = %v, want [apps]", pkg.Plugin.Apps)
	}
	if len(pkg.Plugin.SourceApps) != 2 {
		t.Errorf("SourceApps = %v, want 2 entries", pkg.Plugin.SourceApps)
	}
	if len(pkg.Plugin.Env) != 1 || pkg.Plugin.Env[0].Comment != "api token" {
		t.Errorf("Env = %+v", pkg.Plugin.Env)
	}
}

func TestParse_YAMLWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package.yaml", `name: host
version: 0.1.0
dependencies:
  puni-plugin-a: ^1.0.0
devDependencies:
  puni-plugin-b: ^2.0.0
`)

	pkg, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if pkg.IsPlugin() {
		t.Error("IsPlugin() = true, want false")
	}
	deps := pkg.AllDependencies()
	sort.Strings(deps)
	if len(deps) != 2 || deps[0] != "puni-plugin-a" || deps[1] != "puni-plugin-b" {
		t.Errorf("AllDependencies() = %v", deps)
	}
}

func TestParse_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Parse(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Parse() on missing file should error")
	}

	bad := writeFile(t, dir, "package.json", `{"name": [}`)
	if _, err := Parse(bad); err == nil {
		t.Error("Parse() on malformed file should error")
	}

	list := writeFile(t, dir, "list.json", `["a", "b"]`)
	if _, err := Parse(list); err == nil {
		t.Error("Parse() on non-object root should error")
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	if got := Find(dir); got != "" {
		t.Errorf("Find() on empty dir = %q, want empty", got)
	}

	writeFile(t, dir, "package.yaml", "name: x\n")
	if got := Find(dir); filepath.Base(got) != "package.yaml" {
		t.Errorf("Find() = %q, want package.yaml", got)
	}

	writeFile(t, dir, "package.json", `{"name": "x"}`)
	if got := Find(dir); filepath.Base(got) != "package.json" {
		t.Errorf("Find() = %q, want package.json to take priority", got)
	}
}
