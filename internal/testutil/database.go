// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/teranos/exchainge/db"
)

// SetupTestDB creates an in-memory SQLite database with every migration applied.
// Automatically registers cleanup via t.Cleanup().
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", db.DSN(":memory:"))
	require.NoError(t, err, "failed to create test database")

	// Each pooled connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(conn, nil), "failed to migrate test database")

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

// CreateTestDB creates an in-memory SQLite database without running migrations.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", db.DSN(":memory:"))
	require.NoError(t, err, "failed to create test database")
	conn.SetMaxOpenConns(1)

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}
