// Package event implements the normalized inbound occurrence handed to
// plugin capabilities. An Event exposes scene predicates, the sender's
// permission level and a reply primitive that supports mention, quote,
// bounded retry and delayed recall.
package event
