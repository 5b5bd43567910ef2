// Package installer adds clone-provenance plugins to the plugin root, either
// by cloning a git repository or by copying a local directory, and updates
// cloned plugins in place. New content is staged next to the destination
// and moved into place only once it is complete.
package installer
