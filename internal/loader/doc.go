// Package loader imports a package's entry module and app files and hands
// their named exports to the registry. Imports go through an Importer:
// StaticImporter serves modules compiled into the host binary, and
// YaegiImporter interprets Go source files at runtime.
//
// Loading is partial-failure tolerant: each file is imported on its own
// goroutine, and a failing file yields an empty export set plus an issue in
// the cycle report rather than an error.
package loader
