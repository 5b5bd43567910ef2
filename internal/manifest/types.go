package manifest

import (
	"encoding/json"
	"fmt"
)

// Package is a parsed package manifest. It serves both plugin packages and
// the host manifest, which only uses the dependency maps.
type Package struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Main            string            `json:"main"`
	Engines         map[string]string `json:"engines,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`

	// Plugin is the plugin block; nil when the manifest carries no marker.
	Plugin *PluginBlock `json:"-"`
}

// PluginBlock is the plugin section of a package manifest.
type PluginBlock struct {
	Main       string     `json:"main,omitempty"`
	Apps       StringList `json:"apps,omitempty"`
	SourceApps StringList `json:"source-apps,omitempty"`
	Static     StringList `json:"static,omitempty"`
	Files      []string   `json:"files,omitempty"`
	Env        []EnvDecl  `json:"env,omitempty"`
}

// EnvDecl is one environment variable a plugin declares it needs.
type EnvDecl struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*s = many
	return nil
}

// IsPlugin reports whether the manifest carries the plugin marker.
func (p *Package) IsPlugin() bool {
	return p != nil && p.Plugin != nil
}

// EngineRange returns the declared compatibility range for the given engine
// key, or "" when none is declared.
func (p *Package) EngineRange(engine string) string {
	if p == nil || p.Engines == nil {
		return ""
	}
	return p.Engines[engine]
}

// AllDependencies returns production dependency names followed by
// development dependency names. Order within each map is unspecified.
func (p *Package) AllDependencies() []string {
	names := make([]string, 0, len(p.Dependencies)+len(p.DevDependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	for name := range p.DevDependencies {
		names = append(names, name)
	}
	return names
}
