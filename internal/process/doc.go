// Package process runs helper executables with captured output and a
// cancellation-aware wait.
package process
