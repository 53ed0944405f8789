package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/sqlstore"
)

func setupTestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	db := sqlstore.NewDB(sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		ctx := context.Background()

		// Each table should be queryable on a fresh database.
		n, err := sqlstore.NewHostService(s).CountHosts(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = sqlstore.NewPageService(s).CountPages(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = sqlstore.NewFrontierService(s).CountURLs(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = sqlstore.NewBacklinkService(s).CountBacklinks(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = sqlstore.NewIndexService(s).CountEntries(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, s.Rollback())
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlstore.NewDB(sqlstore.DriverSQLite, "/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})
}

func TestOpenDefault(t *testing.T) {
	t.Parallel()

	t.Run("falls back to sqlite when credentials file is missing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := sqlstore.OpenDefault(bulgu.StorageConfig{
			CredentialsPath: dir + "/credentials.json",
			SQLitePath:      dir + "/test.db",
		})
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, sqlstore.DriverSQLite, db.Driver())
	})

	t.Run("creates the database directory if needed", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := sqlstore.OpenDefault(bulgu.StorageConfig{
			CredentialsPath: dir + "/credentials.json",
			SQLitePath:      dir + "/nested/data/test.db",
		})
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, sqlstore.DriverSQLite, db.Driver())
	})
}

func TestSession_Commit(t *testing.T) {
	t.Parallel()

	t.Run("commit persists writes across sessions", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		s1 := db.NewSession()
		svc := sqlstore.NewHostService(s1)
		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "example.com.tr", IP: "1.2.3.4", Port: 80}))
		require.NoError(t, s1.Commit(ctx))

		s2 := db.NewSession()
		found, err := sqlstore.NewHostService(s2).FindHostByDomain(ctx, "example.com.tr")
		require.NoError(t, err)
		assert.Equal(t, "1.2.3.4", found.IP)
		require.NoError(t, s2.Rollback())
	})

	t.Run("commit without an open transaction is a no-op", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		require.NoError(t, s.Commit(context.Background()))
	})

	t.Run("rollback discards pending writes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		s1 := db.NewSession()
		svc := sqlstore.NewHostService(s1)
		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "example.com.tr"}))
		require.NoError(t, s1.Rollback())

		s2 := db.NewSession()
		_, err := sqlstore.NewHostService(s2).FindHostByDomain(ctx, "example.com.tr")
		assert.Equal(t, bulgu.ENOTFOUND, bulgu.ErrorCode(err))
		require.NoError(t, s2.Rollback())
	})

	t.Run("a fresh transaction begins after commit", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		s := db.NewSession()
		s.SetCommitDelays([]time.Duration{time.Millisecond})
		svc := sqlstore.NewHostService(s)

		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "a.com.tr"}))
		require.NoError(t, s.Commit(ctx))

		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "b.com.tr"}))
		require.NoError(t, s.Commit(ctx))

		n, err := svc.CountHosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.NoError(t, s.Rollback())
	})

	t.Run("a failed commit surfaces the storage error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		s := db.NewSession()
		s.SetCommitDelays([]time.Duration{time.Millisecond})

		conn, err := s.Conn(ctx)
		require.NoError(t, err)
		_, err = conn.ExecContext(ctx, `CREATE TABLE parents (id INTEGER PRIMARY KEY)`)
		require.NoError(t, err)
		_, err = conn.ExecContext(ctx, `CREATE TABLE children (
			parent_id INTEGER REFERENCES parents (id) DEFERRABLE INITIALLY DEFERRED
		)`)
		require.NoError(t, err)
		require.NoError(t, s.Commit(ctx))

		// The orphan row only trips the deferred constraint at COMMIT.
		conn, err = s.Conn(ctx)
		require.NoError(t, err)
		_, err = conn.ExecContext(ctx, `INSERT INTO children (parent_id) VALUES (42)`)
		require.NoError(t, err)

		err = s.Commit(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FOREIGN KEY constraint")
		assert.NotContains(t, err.Error(), "already been committed")

		// The session stays usable after a failed commit.
		conn, err = s.Conn(ctx)
		require.NoError(t, err)
		_, err = conn.ExecContext(ctx, `INSERT INTO parents (id) VALUES (42)`)
		require.NoError(t, err)
		_, err = conn.ExecContext(ctx, `INSERT INTO children (parent_id) VALUES (42)`)
		require.NoError(t, err)
		require.NoError(t, s.Commit(ctx))
	})
}
