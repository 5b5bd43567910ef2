// Package scaffold generates new plugin packages from embedded templates. It
// powers the "puni plugins new" command, producing either a single-folder
// app plugin or a git-style package with a manifest, an entry module with an
// Init hook and an apps directory.
package scaffold
