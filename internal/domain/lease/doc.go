// Package lease contains the distributed lock grant shared by the lock
// service and its clients.
package lease
