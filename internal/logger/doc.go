// Package logger provides a small wrapper around zap to offer:
//   - a sugared logger with a sane console encoder, built once per command invocation,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - context-logger shortcuts (InfoKV, DebugKV, ErrorKV).
//
// There is no process-wide logger: commands create one with New, hand it to
// component constructors and attach it to the context for the command layer.
package logger
