package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB opens a named shared in-memory database, migrated and ready for
// a repository under test. The name derives from t.Name() so parallel tests
// never see each other's rows; cache=shared lets the reader and writer handles
// reach the same in-memory store. WAL does not apply in memory, so the
// journal_mode pragma of the on-disk DSN is dropped here.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name: subtests contain '/' which the SQLite
	// URI parser would read as a path separator.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		url.PathEscape(t.Name()),
	)

	open := func(maxConns int) *sql.DB {
		conn, err := sql.Open("sqlite", dsn)
		require.NoError(t, err)
		conn.SetMaxOpenConns(maxConns)
		require.NoError(t, conn.PingContext(context.Background()))
		return conn
	}

	db := &DB{Writer: open(1), Reader: open(4), path: dsn}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}
