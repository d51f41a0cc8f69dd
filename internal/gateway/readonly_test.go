package gateway

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadOnlyVerifiesQueryOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	rw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = rw.Exec(`CREATE TABLE sales (id INTEGER PRIMARY KEY, business_id TEXT)`)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := OpenReadOnly(path, 2)
	require.NoError(t, err)
	defer ro.Close()

	require.NoError(t, ro.PingContext(context.Background()))
}

func TestReadOnlyStoreRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	rw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = rw.Exec(`CREATE TABLE sales (id INTEGER PRIMARY KEY, business_id TEXT)`)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := OpenReadOnly(path, 2)
	require.NoError(t, err)
	defer ro.Close()

	// Even smuggling a write through the query path fails at the store: the
	// connection itself is query-only.
	rows, err := ro.QueryContext(context.Background(),
		`INSERT INTO sales (business_id) VALUES ('biz-1')`)
	if err == nil {
		for rows.Next() {
		}
		err = rows.Err()
		rows.Close()
	}
	assert.Error(t, err)

	// Nothing was written.
	check, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer check.Close()
	var n int
	require.NoError(t, check.QueryRow(`SELECT COUNT(*) FROM sales`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "absent.db"), 2)
	assert.Error(t, err)
}
