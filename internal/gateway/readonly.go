package gateway

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ReadOnlyDB is the only handle this module holds on the business data store.
// The underlying connection is opened in read-only mode and the type exposes
// no Exec path, so no code in this core can obtain a writable handle. This is
// the structural form of the read-only invariant; the mode=ro deployment of
// the store file is the other half.
type ReadOnlyDB struct {
	db *sql.DB
}

// OpenReadOnly opens the store at path in read-only mode and verifies the
// connection really is query-only before handing it out.
func OpenReadOnly(path string, maxConns int) (*ReadOnlyDB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=1&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach store: %w", err)
	}

	var queryOnly int
	if err := db.QueryRow("PRAGMA query_only").Scan(&queryOnly); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify query_only pragma: %w", err)
	}
	if queryOnly != 1 {
		db.Close()
		return nil, fmt.Errorf("store connection is not query-only")
	}

	return &ReadOnlyDB{db: db}, nil
}

// QueryContext executes a parameterized read.
func (d *ReadOnlyDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a parameterized single-row read.
func (d *ReadOnlyDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

// PingContext verifies the store is reachable.
func (d *ReadOnlyDB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the store handle.
func (d *ReadOnlyDB) Close() error {
	return d.db.Close()
}
