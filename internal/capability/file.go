package capability

import "path/filepath"

// File describes where a registered record came from.
type File struct {
	AbsPath string
	Type    Kind
	// Method is the export name, or the rule method for plugin commands.
	Method string
	// Name is the display name; it falls back to the kind.
	Name string
}

// NewFile builds a source-file descriptor.
func NewFile(absPath string, kind Kind, method, name string) File {
	if name == "" {
		name = string(kind)
	}
	return File{AbsPath: absPath, Type: kind, Method: method, Name: name}
}

// Dirname returns the directory of the source file.
func (f File) Dirname() string { return filepath.Dir(f.AbsPath) }

// Basename returns the source file name.
func (f File) Basename() string { return filepath.Base(f.AbsPath) }
