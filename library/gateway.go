package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collection names, one document each.
const (
	CollectionBooks        = "books"
	CollectionMembers      = "members"
	CollectionTransactions = "transactions"
	CollectionUsers        = "users"
)

// DocumentStore holds named documents. Read must return an error matching
// fs.ErrNotExist when a document has never been written. Write replaces the
// whole document.
type DocumentStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// Gateway stores the four collections as human-readable JSON arrays.
type Gateway struct {
	store DocumentStore
}

func NewGateway(store DocumentStore) *Gateway {
	return &Gateway{store: store}
}

func (g *Gateway) LoadBooks(ctx context.Context) ([]Book, error) {
	return load[Book](ctx, g.store, CollectionBooks)
}

func (g *Gateway) SaveBooks(ctx context.Context, books []Book) error {
	return save(ctx, g.store, CollectionBooks, books)
}

func (g *Gateway) LoadMembers(ctx context.Context) ([]Member, error) {
	return load[Member](ctx, g.store, CollectionMembers)
}

func (g *Gateway) SaveMembers(ctx context.Context, members []Member) error {
	return save(ctx, g.store, CollectionMembers, members)
}

func (g *Gateway) LoadTransactions(ctx context.Context) ([]Transaction, error) {
	return load[Transaction](ctx, g.store, CollectionTransactions)
}

func (g *Gateway) SaveTransactions(ctx context.Context, txns []Transaction) error {
	return save(ctx, g.store, CollectionTransactions, txns)
}

func (g *Gateway) LoadUsers(ctx context.Context) ([]User, error) {
	return load[User](ctx, g.store, CollectionUsers)
}

func (g *Gateway) SaveUsers(ctx context.Context, users []User) error {
	return save(ctx, g.store, CollectionUsers, users)
}

// Load reads all four collections.
func (g *Gateway) Load(ctx context.Context) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Books, err = g.LoadBooks(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Members, err = g.LoadMembers(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Transactions, err = g.LoadTransactions(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Users, err = g.LoadUsers(ctx); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Save writes the collections one after another. A failure part way leaves
// the earlier ones written; there is no cross-collection transaction.
func (g *Gateway) Save(ctx context.Context, s Snapshot) error {
	var errs []error
	if err := g.SaveMembers(ctx, s.Members); err != nil {
		errs = append(errs, err)
	}
	if err := g.SaveBooks(ctx, s.Books); err != nil {
		errs = append(errs, err)
	}
	if err := g.SaveTransactions(ctx, s.Transactions); err != nil {
		errs = append(errs, err)
	}
	if err := g.SaveUsers(ctx, s.Users); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func load[T any](ctx context.Context, store DocumentStore, name string) ([]T, error) {
	data, err := store.Read(ctx, name)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func save[T any](ctx context.Context, store DocumentStore, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := store.Write(ctx, name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
