// Package testdb provides helpers for integration tests that need a
// real Postgres database. Tests using it skip themselves unless
// DATABASE_URL (or NUMLAB_TEST_DB_URL) points at a disposable database.
package testdb

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// URL returns the test database URL, checking DATABASE_URL and
// NUMLAB_TEST_DB_URL in that order. Empty when neither is set.
func URL() string {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return dbURL
	}
	return os.Getenv("NUMLAB_TEST_DB_URL")
}

// New opens a connection to the test database and applies migrations.
// The test is skipped when no test database is configured.
func New(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := URL()
	if dbURL == "" {
		t.Skip("integration test requires DATABASE_URL or NUMLAB_TEST_DB_URL")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open test database connection")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, db.Ping(), "failed to ping test database")

	applyMigrations(t, db)
	return db
}

// applyMigrations runs the repository's goose migrations against the
// test database.
func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()

	root, err := findProjectRoot()
	require.NoError(t, err, "failed to find project root")

	migrationsDir := filepath.Join(root, "migrations")
	require.DirExists(t, migrationsDir)

	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, migrationsDir), "failed to apply migrations")
}

// WithTx runs fn inside a transaction that is always rolled back, so
// integration tests leave no rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.Errorf("failed to roll back test transaction: %v", rbErr)
		}
	}()

	fn(t, tx)
}

// findProjectRoot walks up from the working directory until it finds
// the directory containing go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
