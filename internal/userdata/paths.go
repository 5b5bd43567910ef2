package userdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PuniCore/Puni/internal/branding"
)

// Directory name constants for the per-plugin data layout.
const (
	ConfigDir    = "config"
	DataDir      = "data"
	ResourcesDir = "resources"
)

// Permission constants.
const (
	DirPermSecure  os.FileMode = 0700
	FilePermSecure os.FileMode = 0600
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
)

// ScaffoldDirs are the folders created for scaffold-kind plugins.
var ScaffoldDirs = []string{ConfigDir, DataDir, ResourcesDir}

// GetDataRoot returns the plugin data root. It checks the PUNI_DATA
// environment variable first, then falls back to fallback.
func GetDataRoot(fallback string) (string, error) {
	if v := os.Getenv(branding.EnvVar("DATA")); v != "" {
		return v, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("no data root configured")
	}
	abs, err := filepath.Abs(fallback)
	if err != nil {
		return "", fmt.Errorf("resolving data root %s: %w", fallback, err)
	}
	return abs, nil
}

// PluginDataDir returns the data directory of one plugin.
// For example, PluginDataDir("/srv/data", "puni-plugin-demo") returns
// "/srv/data/puni-plugin-demo".
func PluginDataDir(root, name string) string {
	return filepath.Join(root, filepath.FromSlash(name))
}
