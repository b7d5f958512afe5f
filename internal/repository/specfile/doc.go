// Package specfile reads the human-edited snapx.yaml document that declares
// feeds and apps, and resolves a validated spec.SnapApp for one app and
// runtime identifier.
package specfile
