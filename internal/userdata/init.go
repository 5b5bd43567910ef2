package userdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuniCore/Puni/internal/platform"
)

// EnsurePluginDirs creates <root>/<name>/ and each of dirs beneath it.
// Existing directories are left alone. Entries that would escape the plugin
// directory are rejected.
func EnsurePluginDirs(root, name string, dirs []string) error {
	base := PluginDataDir(root, name)
	if err := ensureDir(base, DirPermNormal); err != nil {
		return err
	}

	for _, d := range dirs {
		if d == "" {
			continue
		}
		path := filepath.Join(base, filepath.FromSlash(d))
		rel, err := filepath.Rel(base, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("scaffold dir %q escapes %s", d, base)
		}
		if err := ensureDir(path, DirPermNormal); err != nil {
			return err
		}
	}
	return nil
}

// ensureDir creates a directory with the given permissions if it doesn't exist.
func ensureDir(path string, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", path)
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	// MkdirAll may not apply exact perms if parent dirs needed creation.
	if err := platform.Chmod(path, perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}
