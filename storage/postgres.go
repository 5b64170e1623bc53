package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const defaultPostgresDSN = "postgres://localhost/library?sslmode=disable"

// Postgres keeps each document as a JSONB row, for deployments where
// several terminals share one library.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects with dsn (falls back to a local default) and ensures
// the collections table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS library_collections (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create collections table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Driver() Driver { return DriverPostgres }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Read(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := p.db.QueryRowContext(ctx, `SELECT payload::text FROM library_collections WHERE name=$1`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notExist(name)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	return []byte(payload), nil
}

func (p *Postgres) Write(ctx context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO library_collections(name,payload,updated_at) VALUES($1,$2::jsonb,now())
		ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`, name, string(data))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}
