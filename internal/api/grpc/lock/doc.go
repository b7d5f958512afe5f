// Package lock exposes the lock service over gRPC.
//
// The service is described by hand (ServiceDesc) and exchanges
// google.protobuf.Struct messages, so no generated code is needed:
//
//	snapx.lock.v1.LockService/Acquire {name, duration, owner}         -> {challenge, expires_at}
//	snapx.lock.v1.LockService/Renew   {name, challenge}               -> {expires_at}
//	snapx.lock.v1.LockService/Unlock  {name, challenge, break_period} -> {}
//
// A held lock (on Acquire) or a missing lease (on Renew/Unlock) is reported
// as codes.FailedPrecondition.
package lock
