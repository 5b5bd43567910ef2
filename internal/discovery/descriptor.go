package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuniCore/Puni/internal/manifest"
	"github.com/PuniCore/Puni/internal/userdata"
)

// LoadState tracks a descriptor through one load cycle.
type LoadState int

const (
	StateDiscovered LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "discovered"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Descriptor is the normalized description of one discovered package.
// ID and State are assigned by the loader before the descriptor is
// published in a registry snapshot; -1 means not yet loaded.
type Descriptor struct {
	ID    int       `json:"id"`
	Kind  Kind      `json:"kind"`
	Name  string    `json:"name"`
	Dir   string    `json:"dir"`
	Apps  []string  `json:"apps"`
	State LoadState `json:"state"`

	// AllApps are the app search directories that exist on disk.
	AllApps []string `json:"allApps"`

	sourceMode bool
	once       sync.Once
	pkg        *manifest.Package
	pkgErr     error
}

func newDescriptor(kind Kind, name, dir string, apps, allApps []string, sourceMode bool) *Descriptor {
	return &Descriptor{
		ID:         -1,
		Kind:       kind,
		Name:       name,
		Dir:        dir,
		Apps:       apps,
		AllApps:    allApps,
		sourceMode: sourceMode,
	}
}

// Identifier returns the descriptor's "kind:name" identifier.
func (d *Descriptor) Identifier() Identifier {
	return Identifier{Kind: d.Kind, Name: d.Name}
}

// ManifestPath returns the manifest file path, or "" when there is none.
func (d *Descriptor) ManifestPath() string {
	return manifest.Find(d.Dir)
}

// Manifest reads the package manifest on first use and caches the result.
// Packages without a manifest return an empty Package.
func (d *Descriptor) Manifest() (*manifest.Package, error) {
	d.once.Do(func() {
		path := d.ManifestPath()
		if path == "" {
			d.pkg = &manifest.Package{}
			return
		}
		d.pkg, d.pkgErr = manifest.Parse(path)
	})
	return d.pkg, d.pkgErr
}

// EntryFile returns the absolute path of the entry module, or "" when none
// is declared or the file does not exist. Dependency packages and
// distributable mode use the top-level main; source mode uses the plugin
// block's main.
func (d *Descriptor) EntryFile() string {
	if d.Kind == KindApp {
		return ""
	}
	pkg, err := d.Manifest()
	if err != nil || pkg == nil {
		return ""
	}
	main := pkg.Main
	if d.Kind != KindNpm && d.sourceMode {
		main = ""
		if pkg.Plugin != nil {
			main = pkg.Plugin.Main
		}
	}
	if main == "" {
		return ""
	}
	path := filepath.Join(d.Dir, filepath.FromSlash(main))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}

// StaticDirs returns the static asset directories. Declared paths are
// resolved against the package dir; otherwise resource and resources are
// used.
func (d *Descriptor) StaticDirs() []string {
	if d.Kind != KindApp {
		if pkg, err := d.Manifest(); err == nil && pkg.Plugin != nil && len(pkg.Plugin.Static) > 0 {
			dirs := make([]string, 0, len(pkg.Plugin.Static))
			for _, s := range pkg.Plugin.Static {
				dirs = append(dirs, filepath.Join(d.Dir, filepath.FromSlash(s)))
			}
			return dirs
		}
	}
	return []string{filepath.Join(d.Dir, "resource"), filepath.Join(d.Dir, "resources")}
}

// ScaffoldDirs returns the data folders created for the package on load.
func (d *Descriptor) ScaffoldDirs() []string {
	if d.Kind == KindApp {
		return userdata.ScaffoldDirs
	}
	if pkg, err := d.Manifest(); err == nil && pkg.Plugin != nil {
		return pkg.Plugin.Files
	}
	return nil
}

// Owns reports whether file belongs to the package: it is one of the app
// files, lies under an app directory, or lies under a scaffold package dir.
func (d *Descriptor) Owns(file string) bool {
	file = filepath.Clean(file)
	for _, a := range d.Apps {
		if a == file {
			return true
		}
	}
	for _, dir := range d.AllApps {
		if within(dir, file) {
			return true
		}
	}
	return d.Kind == KindApp && within(d.Dir, file)
}

func within(dir, file string) bool {
	dir = filepath.Clean(dir)
	return file == dir || strings.HasPrefix(file, dir+string(filepath.Separator))
}
