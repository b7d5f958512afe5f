// Package config defines the snapx settings file and provides helpers to
// load, validate and save it in YAML format.
//
// The Config type holds how to reach the lock service, the lease timings used
// by release-mutating verbs, and process/log tuning for the installer.
package config
