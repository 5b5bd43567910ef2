// Package branding provides compile-time identity values for the host.
//
// branding.yaml is embedded with //go:embed; forks edit that file to rename
// the binary, the home directory, the environment prefix, the plugin
// directory prefix and the manifest marker key.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName      string `yaml:"cli_name"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	HomeDir      string `yaml:"home_dir"`
	EnvPrefix    string `yaml:"env_prefix"`
	GoModule     string `yaml:"go_module"`
	PluginPrefix string `yaml:"plugin_prefix"`
	ManifestKey  string `yaml:"manifest_key"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:      "puni",
			DisplayName:  "Puni",
			Description:  "Plugin runtime for a long-running chat automation host",
			HomeDir:      ".puni",
			EnvPrefix:    "PUNI",
			GoModule:     "github.com/PuniCore/Puni",
			PluginPrefix: "puni-plugin-",
			ManifestKey:  "puni",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "puni").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "Puni").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".puni").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "PUNI").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// PluginPrefix returns the directory-name prefix every scaffold or clone
// plugin under the plugin root must carry (e.g., "puni-plugin-").
func PluginPrefix() string { load(); return defaults.PluginPrefix }

// ManifestKey returns the package manifest key that marks a package as a
// plugin and holds its plugin block (e.g., "puni").
func ManifestKey() string { load(); return defaults.ManifestKey }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "PUNI_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
