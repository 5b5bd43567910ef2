// Package manifest parses and validates package manifests. A manifest is a
// package.json (or package.yaml) file describing a package's name, version,
// entry module, engine compatibility range, dependencies and, for plugins,
// the plugin block stored under the branding manifest key.
package manifest
