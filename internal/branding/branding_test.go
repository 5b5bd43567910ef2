package branding

import "testing"

func TestDefaultsFromEmbeddedFile(t *testing.T) {
	if got := CLIName(); got != "puni" {
		t.Errorf("CLIName() = %q, want %q", got, "puni")
	}
	if got := PluginPrefix(); got != "puni-plugin-" {
		t.Errorf("PluginPrefix() = %q, want %q", got, "puni-plugin-")
	}
	if got := ManifestKey(); got != "puni" {
		t.Errorf("ManifestKey() = %q, want %q", got, "puni")
	}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar("home"); got != "PUNI_HOME" {
		t.Errorf("EnvVar(%q) = %q, want %q", "home", got, "PUNI_HOME")
	}
}
