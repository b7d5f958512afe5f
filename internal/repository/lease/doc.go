// Package lease implements persistence for lock service leases.
//
// MemoryRepository keeps leases in process memory; SQLiteRepository stores
// them in a SQLite database so a restarted lock service keeps honoring
// leases granted before the restart.
package lease
