package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps documents as rows of a single table in a local database file.
type SQLite struct {
	db *sql.DB

	readStmt  *sql.Stmt
	writeStmt *sql.Stmt
}

// NewSQLite opens (or creates) the database at dbPath, applies schema
// migrations, and prepares the read and write statements.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "library.db")
	}
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Driver() Driver { return DriverSQLite }

// Close releases prepared statements and closes the DB.
func (s *SQLite) Close() error {
	if s.readStmt != nil {
		s.readStmt.Close()
	}
	if s.writeStmt != nil {
		s.writeStmt.Close()
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL lets the shell read while another process writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS collections (
            name TEXT PRIMARY KEY,
            payload TEXT NOT NULL,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *SQLite) prepareStatements() error {
	var err error
	if s.readStmt, err = s.db.Prepare(`SELECT payload FROM collections WHERE name=?`); err != nil {
		return err
	}
	if s.writeStmt, err = s.db.Prepare(`INSERT INTO collections(name,payload,updated_at) VALUES(?,?,CURRENT_TIMESTAMP)
            ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`); err != nil {
		return err
	}
	return nil
}

func (s *SQLite) Read(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := s.readStmt.QueryRowContext(ctx, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notExist(name)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	return []byte(payload), nil
}

func (s *SQLite) Write(ctx context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if _, err := s.writeStmt.ExecContext(ctx, name, string(data)); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}
