// Package cli defines the Cobra command tree for the puni CLI. Each file
// registers one top-level command (plugins, run, env, etc.) with the root
// command. Commands load settings, wire the plugin runtime from internal
// packages and only handle flag parsing, I/O formatting and process
// lifetime.
package cli
