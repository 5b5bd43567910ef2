package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/PuniCore/Puni/internal/branding"
	"github.com/PuniCore/Puni/internal/compat"
	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/installer"
	"github.com/PuniCore/Puni/internal/manifest"
)

//go:embed templates
var templateFS embed.FS

// Data holds all template variables available to scaffold templates.
type Data struct {
	Name        string // e.g., "puni-plugin-weather"
	Short       string // Name without the plugin prefix, e.g., "weather"
	Package     string // Go package name for app plugins
	Description string
	Version     string
	Engine      string // Compatibility range, e.g., ">=1.2.0"
	ManifestKey string
	EnvKey      string // e.g., "WEATHER_GREETING"
	Year        int
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// Kinds lists the provenance kinds a plugin can be scaffolded as.
var Kinds = []discovery.Kind{discovery.KindApp, discovery.KindGit}

// NewData validates name and returns template data with derived fields
// populated. engineVersion becomes the lower bound of the compatibility
// range when it is a valid version.
func NewData(name, engineVersion string) (*Data, error) {
	if err := installer.ValidateName(name); err != nil {
		return nil, err
	}
	short := strings.TrimPrefix(name, branding.PluginPrefix())

	d := &Data{
		Name:        name,
		Short:       short,
		Package:     packageName(short),
		Description: fmt.Sprintf("%s plugin: %s", branding.DisplayName(), short),
		Version:     "0.1.0",
		Engine:      "*",
		ManifestKey: branding.ManifestKey(),
		EnvKey:      envKey(short) + "_GREETING",
		Year:        time.Now().Year(),
	}
	if compat.Valid(engineVersion) {
		d.Engine = ">=" + strings.TrimPrefix(engineVersion, "v")
	}
	return d, nil
}

// packageName turns short into a valid Go package identifier.
func packageName(short string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(short) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "plugin" + s
	}
	return s
}

// envKey upper-cases short and replaces separators with underscores.
func envKey(short string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			return r
		default:
			return '_'
		}
	}, short)
}

// Generate creates a new plugin of the given kind in outputDir from the
// embedded template set. outputDir must be missing or empty.
func Generate(kind discovery.Kind, data *Data, outputDir string) (*Result, error) {
	templatesDir := path.Join("templates", string(kind))
	if _, err := fs.Stat(templateFS, templatesDir); err != nil {
		return nil, fmt.Errorf("template set %q not found: %w", kind, err)
	}

	existing, err := os.ReadDir(outputDir)
	if err == nil && len(existing) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &Result{OutputDir: outputDir}

	err = fs.WalkDir(templateFS, templatesDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		rel := strings.TrimSuffix(strings.TrimPrefix(p, templatesDir+"/"), ".tmpl")
		outPath := filepath.Join(outputDir, filepath.FromSlash(rel))

		tmplBytes, err := fs.ReadFile(templateFS, p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}
		tmpl, err := template.New(entry.Name()).Parse(string(tmplBytes))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", p, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("executing template %s: %w", p, err)
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", outPath, err)
		}
		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		result.Files = append(result.Files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Validate the generated manifest against the plugin block schema.
	if manifestFile := manifest.Find(outputDir); manifestFile != "" {
		valResult, valErr := manifest.ValidateFile(manifestFile)
		if valErr != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Could not validate manifest: %v", valErr))
		} else if !valResult.Valid {
			for _, issue := range valResult.Issues {
				result.Warnings = append(result.Warnings, issue.String())
			}
		}
	}

	return result, nil
}
