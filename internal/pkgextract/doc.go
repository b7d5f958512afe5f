// Package pkgextract unpacks the payload of a zip-based release package.
//
// A package carries a "<id>.nuspec" manifest at its root and the payload under
// lib/<target-framework>/. Only payload entries are extracted; the framework
// root and any residual lib/net45 segment are removed from output paths.
package pkgextract
