// Package dispatch routes events to registered capabilities. It only reads
// registry snapshots, so dispatch never blocks a load or reload.
package dispatch
