package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PuniCore/Puni/internal/branding"
	"go.yaml.in/yaml/v3"
)

// File names probed for a package manifest, in priority order.
var FileNames = []string{"package.json", "package.yaml"}

// Find returns the manifest path inside dir, or "" when none exists.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Parse reads a manifest file and returns the typed package. JSON and YAML
// files are both decoded through the YAML decoder, since JSON is a subset.
func Parse(path string) (*Package, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, path)
}

// ParseBytes decodes manifest data. path is used for error messages only.
func ParseBytes(data []byte, path string) (*Package, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	pkg, err := convert[Package](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if block, ok := raw[branding.ManifestKey()]; ok && block != nil {
		pb, err := convert[PluginBlock](block)
		if err != nil {
			return nil, fmt.Errorf("parsing %s block in %s: %w", branding.ManifestKey(), path, err)
		}
		pkg.Plugin = pb
	}

	return pkg, nil
}

// decodeRaw unmarshals manifest data into a JSON-compatible generic map.
func decodeRaw(data []byte) (map[string]interface{}, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling: %w", err)
	}
	if raw == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := normalizeYAML(raw).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("manifest root is not an object")
	}
	return m, nil
}

// convert re-encodes a generic value into a typed struct via JSON tags.
func convert[T any](v interface{}) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
