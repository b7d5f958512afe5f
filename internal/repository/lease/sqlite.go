package lease

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	domain "github.com/oshokin/snapx/internal/domain/lease"
)

const schema = `
CREATE TABLE IF NOT EXISTS leases (
	name        TEXT PRIMARY KEY,
	challenge   TEXT NOT NULL,
	owner       TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	acquired_at INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
)`

// SQLiteRepository persists leases in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and prepares the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open lease database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("prepare lease schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Get loads the lease stored under name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*domain.Lease, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT name, challenge, owner, duration_ns, acquired_at, expires_at FROM leases WHERE name = ?`,
		name,
	)

	l, err := scanLease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("load lease %s: %w", name, err)
	}

	return l, nil
}

// Put upserts the lease.
func (r *SQLiteRepository) Put(ctx context.Context, l *domain.Lease) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO leases (name, challenge, owner, duration_ns, acquired_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			challenge = excluded.challenge,
			owner = excluded.owner,
			duration_ns = excluded.duration_ns,
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at`,
		l.Name, l.Challenge, l.Owner, int64(l.Duration), l.AcquiredAt.UnixNano(), l.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store lease %s: %w", l.Name, err)
	}

	return nil
}

// Delete removes the lease stored under name.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM leases WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete lease %s: %w", name, err)
	}

	return nil
}

// List loads every stored lease ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Lease, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, challenge, owner, duration_ns, acquired_at, expires_at FROM leases ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var result []*domain.Lease

	for rows.Next() {
		l, scanErr := scanLease(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan lease: %w", scanErr)
		}

		result = append(result, l)
	}

	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLease(row scanner) (*domain.Lease, error) {
	var (
		l                               domain.Lease
		duration, acquiredAt, expiresAt int64
	)

	if err := row.Scan(&l.Name, &l.Challenge, &l.Owner, &duration, &acquiredAt, &expiresAt); err != nil {
		return nil, err
	}

	l.Duration = time.Duration(duration)
	l.AcquiredAt = time.Unix(0, acquiredAt)
	l.ExpiresAt = time.Unix(0, expiresAt)

	return &l, nil
}
