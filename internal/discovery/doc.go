// Package discovery finds plugin packages and turns them into descriptors.
//
// Packages come from three provenance sources:
//
//   - app: prefixed folders under the plugin root without a manifest
//   - git: prefixed folders under the plugin root with a manifest, plus
//     the host directory itself ("root") when its manifest carries the
//     plugin block
//   - npm: dependencies of the host manifest installed in the modules dir
//     whose manifest carries the plugin block
//
// Candidates that declare an engine range excluding the running version are
// logged and skipped. Results are cached per filter for a fixed TTL.
package discovery
