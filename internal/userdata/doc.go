// Package userdata manages the per-plugin data directory tree and the
// persisted host .env file. Plugins get config, data and resources folders
// under the data root on first load, and the environment variables they
// declare are merged into the .env file without overwriting existing keys.
package userdata
