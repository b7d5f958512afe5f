// Package lock exposes the lock service over HTTP with JSON bodies.
//
// Routes (all POST bodies are JSON):
//
//	POST /v1/locks/acquire  {name, duration, owner}          -> 200 {challenge, expires_at} | 409
//	POST /v1/locks/renew    {name, challenge}                -> 200 {expires_at} | 409
//	POST /v1/locks/unlock   {name, challenge, break_period}  -> 200 | 409
//	GET  /v1/locks                                           -> 200 [lease...]
//	GET  /metrics                                            -> Prometheus exposition
//
// Durations are Go duration strings ("5m0s").
package lock
