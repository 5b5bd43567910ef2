// Package watch hot reloads packages when their app files change. Change
// events are debounced per file, mapped to the owning package through the
// registry snapshot and coalesced into one reload per package.
package watch
