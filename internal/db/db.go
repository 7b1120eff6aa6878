package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/hira/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the journal database file inside the base directory.
const FileName = "hira.db"

// Init initializes the SQLite journal at baseDir/hira.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.hira.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init when several processes share the journal.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: sessions and rounds
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS sessions (
		  id          TEXT PRIMARY KEY,
		  corpus_path TEXT NOT NULL,
		  item_count  INTEGER NOT NULL,
		  strategy    TEXT NOT NULL,
		  seed        INTEGER NOT NULL,
		  started_at  INTEGER NOT NULL,
		  ended_at    INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_started
		ON sessions(started_at DESC);

		CREATE TABLE IF NOT EXISTS rounds (
		  session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		  seq             INTEGER NOT NULL,
		  item_id         INTEGER NOT NULL,
		  prompt          TEXT NOT NULL,
		  answer          TEXT NOT NULL,
		  correct         INTEGER NOT NULL,
		  first_exposure  INTEGER NOT NULL,
		  mastery_after   REAL NOT NULL,
		  total_mastery   REAL NOT NULL,
		  position_before INTEGER NOT NULL,
		  position_after  INTEGER NOT NULL,
		  answered_at     INTEGER NOT NULL,
		  PRIMARY KEY (session_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_rounds_item
		ON rounds(item_id, session_id);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
