// Package plugin drives the plugin lifecycle: full load cycles, single
// package hot reload, list and info queries, and event dispatch against the
// resulting registry.
package plugin
