// Package report collects the non-fatal problems found during one discovery
// and load cycle so they can be printed as a summary afterwards.
package report
