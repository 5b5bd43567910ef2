package userdata

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// EnvEntry represents a single key-value pair from a .env file.
type EnvEntry struct {
	Key     string
	Value   string
	Comment string
}

// EnvDecl is an environment variable declared by a plugin package.
type EnvDecl struct {
	Package string
	Key     string
	Value   string
	Comment string
}

// ParseEnvFile reads a .env file and returns key-value entries.
// It skips blank lines. A comment line directly above an entry becomes that
// entry's Comment. Surrounding double quotes on values are removed.
func ParseEnvFile(path string) ([]EnvEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer f.Close()

	var entries []EnvEntry
	var pending string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			pending = ""
			continue
		}
		if strings.HasPrefix(line, "#") {
			pending = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			if strings.HasPrefix(pending, "---") {
				pending = ""
			}
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			pending = ""
			continue
		}
		entries = append(entries, EnvEntry{
			Key:     strings.TrimSpace(key),
			Value:   unquote(strings.TrimSpace(value)),
			Comment: pending,
		})
		pending = ""
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return entries, nil
}

// MergeEnv appends declarations whose keys are not yet present in the .env
// file at path, creating the file if needed. Existing values are never
// overwritten. Returns the keys that were added.
func MergeEnv(path string, decls []EnvDecl) ([]string, error) {
	existing := make(map[string]bool)
	if _, err := os.Stat(path); err == nil {
		entries, err := ParseEnvFile(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			existing[e.Key] = true
		}
	}

	var b strings.Builder
	var added []string
	lastPkg := ""
	for _, d := range decls {
		if d.Key == "" || existing[d.Key] {
			continue
		}
		existing[d.Key] = true

		if d.Package != lastPkg {
			fmt.Fprintf(&b, "\n# --- %s ---\n", d.Package)
			lastPkg = d.Package
		}
		if d.Comment != "" {
			fmt.Fprintf(&b, "# %s\n", d.Comment)
		}
		fmt.Fprintf(&b, "%s=%s\n", d.Key, quote(d.Value))
		added = append(added, d.Key)
	}

	if len(added) == 0 {
		return nil, nil
	}

	if err := ensureDir(filepath.Dir(path), DirPermNormal); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, FilePermSecure)
	if err != nil {
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return nil, fmt.Errorf("writing env file %s: %w", path, err)
	}
	return added, nil
}

func quote(v string) string {
	if strings.ContainsAny(v, " #\t\"") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return strings.ReplaceAll(v[1:len(v)-1], `\"`, `"`)
	}
	return v
}

// sensitivePatterns are substrings that indicate a value should be redacted.
var sensitivePatterns = []string{"TOKEN", "SECRET", "PASSWORD", "KEY", "CREDENTIAL"}

// RedactValue returns a redacted version of value if the key name contains
// a sensitive pattern (case-insensitive substring match).
// Values with 4+ chars show the first 4 chars + "***".
// Values with fewer than 4 chars are fully redacted as "***".
func RedactValue(key, value string) string {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(upper, pattern) {
			if len(value) >= 4 {
				return value[:4] + "***"
			}
			return "***"
		}
	}
	return value
}

// OpenEditor opens the given file in the user's preferred editor.
// It checks $EDITOR and falls back to notepad on Windows or vi on Unix.
func OpenEditor(filePath string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		if runtime.GOOS == "windows" {
			editor = "notepad"
		} else {
			editor = "vi"
		}
	}

	cmd := exec.Command(editor, filePath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running editor %s: %w", editor, err)
	}
	return nil
}
