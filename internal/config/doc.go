// Package config manages host settings stored at ~/.puni/config.yaml and
// overridable through PUNI_* environment variables. It provides functions to
// load, read, and write configuration keys and a typed Settings snapshot
// consumed by the plugin runtime.
package config
