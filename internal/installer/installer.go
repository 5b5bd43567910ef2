package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuniCore/Puni/internal/branding"
	"github.com/PuniCore/Puni/internal/manifest"
	"github.com/PuniCore/Puni/internal/platform"
	"github.com/PuniCore/Puni/internal/userdata"
	"go.uber.org/zap"
)

// tmpSuffix is appended to the target dir while content is staged.
const tmpSuffix = ".tmp"

var (
	// ErrInvalidName is returned for names without the plugin prefix or
	// containing path separators.
	ErrInvalidName = errors.New("invalid plugin name")
	// ErrExists is returned when installing over an existing plugin.
	ErrExists = errors.New("plugin already installed")
	// ErrNotInstalled is returned when updating a plugin that is missing or
	// was not cloned with git.
	ErrNotInstalled = errors.New("plugin not installed from git")
)

// excludedNames are skipped when copying a local plugin.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// Options configures an Installer.
type Options struct {
	PluginsDir string
	// Git is the git executable; defaults to "git" on PATH.
	Git    string
	Logger *zap.Logger
}

// Installer manages clone-provenance plugins under one plugin root.
type Installer struct {
	dir string
	git string
	log *zap.Logger
}

// New creates an Installer.
func New(opts Options) *Installer {
	if opts.Git == "" {
		opts.Git = "git"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Installer{dir: opts.PluginsDir, git: opts.Git, log: log.Named("installer")}
}

// ValidateName checks that name is a single path element carrying the
// plugin prefix.
func ValidateName(name string) error {
	prefix := branding.PluginPrefix()
	switch {
	case !strings.HasPrefix(name, prefix) || len(name) == len(prefix):
		return fmt.Errorf("%w: %q must start with %q", ErrInvalidName, name, prefix)
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return fmt.Errorf("%w: %q is not a plain directory name", ErrInvalidName, name)
	}
	return nil
}

// NameFromURL derives a plugin name from a repository URL or path.
func NameFromURL(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, ":"); i >= 0 && !strings.Contains(url[i:], "/") {
		url = url[i+1:]
	}
	return strings.TrimSuffix(path.Base(filepath.ToSlash(url)), ".git")
}

// Dir returns the install directory of name.
func (in *Installer) Dir(name string) string {
	return filepath.Join(in.dir, name)
}

// Clone shallow-clones url into the plugin root as name. An empty name is
// derived from url. The cloned tree must contain a package manifest.
func (in *Installer) Clone(ctx context.Context, url, name string) (string, error) {
	if name == "" {
		name = NameFromURL(url)
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := in.ensureGit(); err != nil {
		return "", err
	}
	dst := in.Dir(name)
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, dst)
	}

	err := in.stage(dst, func(tmp string) error {
		if out, err := in.run(ctx, "", "clone", "--depth=1", url, tmp); err != nil {
			return fmt.Errorf("cloning %s: %w\n%s", url, err, out)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	in.log.Info("plugin cloned", zap.String("name", name), zap.String("url", url))
	return dst, nil
}

// Pull updates a cloned plugin with a fast-forward pull.
func (in *Installer) Pull(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := in.ensureGit(); err != nil {
		return err
	}
	dir := in.Dir(name)
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}
	if out, err := in.run(ctx, dir, "pull", "--ff-only"); err != nil {
		return fmt.Errorf("pulling %s: %w\n%s", name, err, out)
	}
	in.log.Info("plugin updated", zap.String("name", name))
	return nil
}

// CopyLocal copies a plugin directory into the plugin root as name,
// replacing any previous copy. VCS metadata and dependency folders are
// skipped.
func (in *Installer) CopyLocal(src, name string) (string, error) {
	if name == "" {
		name = filepath.Base(filepath.Clean(src))
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", src)
	}

	dst := in.Dir(name)
	if err := in.stage(dst, func(tmp string) error { return copyDir(src, tmp) }); err != nil {
		return "", err
	}
	in.log.Info("plugin copied", zap.String("name", name), zap.String("src", src))
	return dst, nil
}

// stage fills a temporary sibling of dst with fill, checks it is a plugin
// and moves it into place.
func (in *Installer) stage(dst string, fill func(tmp string) error) error {
	tmp := dst + tmpSuffix
	_ = os.RemoveAll(tmp)
	if err := os.MkdirAll(filepath.Dir(tmp), userdata.DirPermNormal); err != nil {
		return fmt.Errorf("creating plugin root: %w", err)
	}

	if err := fill(tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if manifest.Find(tmp) == "" {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("%s has no package manifest", filepath.Base(dst))
	}
	if err := platform.ReplaceDir(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	return nil
}

func (in *Installer) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, in.git, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (in *Installer) ensureGit() error {
	if _, err := exec.LookPath(in.git); err != nil {
		return fmt.Errorf("git is required but %q was not found in PATH", in.git)
	}
	return nil
}

// copyDir recursively copies src to dst, skipping excludedNames and
// anything that is not a regular file or directory.
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if excludedNames[entry.Name()] {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else if entry.Type().IsRegular() {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}
