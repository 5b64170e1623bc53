// Package storage provides the document stores behind the library's
// persistence gateway. Each store keeps named JSON documents (one per
// collection) and reports a never-written document with ErrNotExist.
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"time"
)

// Driver names a storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverSQLite     Driver = "sqlite"
	DriverPostgres   Driver = "postgres"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotExist is matched (via errors.Is) by Read errors for absent documents.
var ErrNotExist = fs.ErrNotExist

// Store reads and replaces whole documents.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Driver() Driver
	Close() error
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// checkName keeps document names usable as file names, table keys and
// object keys alike.
func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}

func notExist(name string) error {
	return fmt.Errorf("document %s: %w", name, ErrNotExist)
}

// WithTimeout bounds every Read and Write of s by d. A non-positive d
// returns s unchanged.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{Store: s, timeout: d}
}

type timeoutStore struct {
	Store
	timeout time.Duration
}

func (t *timeoutStore) Read(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Store.Read(ctx, name)
}

func (t *timeoutStore) Write(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Store.Write(ctx, name, data)
}
