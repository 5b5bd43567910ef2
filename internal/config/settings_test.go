package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	s := FromViper(viper.New())

	if s.PluginsDir != "./plugins" {
		t.Errorf("PluginsDir = %q, want %q", s.PluginsDir, "./plugins")
	}
	if s.ModulesDir != "modules" {
		t.Errorf("ModulesDir = %q, want %q", s.ModulesDir, "modules")
	}
	if s.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want %v", s.CacheTTL, time.Minute)
	}
	if s.EngineVersion != "0.0.0" {
		t.Errorf("EngineVersion = %q, want %q", s.EngineVersion, "0.0.0")
	}
	if s.SourceMode {
		t.Error("SourceMode should default to false")
	}
}

func TestFromViperReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `plugins:
  dir: /srv/plugins
  source_mode: true
  cache_ttl: 5s
engine:
  version: 1.4.2
permissions:
  masters: [alice, bob]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	s := FromViper(v)
	if s.PluginsDir != "/srv/plugins" {
		t.Errorf("PluginsDir = %q, want %q", s.PluginsDir, "/srv/plugins")
	}
	if !s.SourceMode {
		t.Error("SourceMode = false, want true")
	}
	if s.CacheTTL != 5*time.Second {
		t.Errorf("CacheTTL = %v, want 5s", s.CacheTTL)
	}
	if s.EngineVersion != "1.4.2" {
		t.Errorf("EngineVersion = %q, want %q", s.EngineVersion, "1.4.2")
	}
	if len(s.Masters) != 2 || s.Masters[0] != "alice" {
		t.Errorf("Masters = %v, want [alice bob]", s.Masters)
	}
	// Unset keys still fall back to defaults.
	if s.DataDir != "./data" {
		t.Errorf("DataDir = %q, want %q", s.DataDir, "./data")
	}
}
