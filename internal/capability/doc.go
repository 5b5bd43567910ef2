// Package capability defines the units of behavior a plugin exports:
// commands, accept handlers, scheduled tasks, buttons and keyed handlers.
//
// Capability is a closed union. Plugins construct values with the helpers
// in this package (NewCommand, NewAccept, NewTask, NewButton, NewHandler)
// or export a Builder that returns a Plugin with an ordered rule list; the
// registry classifies each export once by its Kind.
package capability
