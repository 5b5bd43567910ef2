// Package metrics exposes prometheus collectors for the plugin runtime:
// registry sizes, load issues, reloads, dispatch outcomes and task runs.
package metrics
