// Package logging builds the zap loggers used across the runtime.
package logging
