// Package registry owns the process-wide capability registry. A single
// writer opens a Batch, registers packages and classifies their exports,
// then commits; commit stably resorts every bucket and publishes an
// immutable Snapshot that readers load without locking.
package registry
