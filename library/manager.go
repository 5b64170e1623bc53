package library

import (
	"context"
	"fmt"
	"io"

	"library-circulation/logger"
)

// Default account created when the user directory is empty.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// Options tunes a LibraryManager. The zero value uses the default policy,
// the real clock, random UUIDs and a silent logger.
type Options struct {
	Policy    Policy
	Clock     func() Date
	NewID     func() string
	Logger    *logger.Logger
	SeedAdmin bool
}

// LibraryManager is a thin façade over the catalog, membership, ledger and
// user directory, keeping CLI code simple. It loads everything from the
// gateway when opened and writes collections back after each change.
type LibraryManager struct {
	store   DocumentStore
	gateway *Gateway
	catalog *Catalog
	members *Membership
	ledger  *Ledger
	users   *Users
	log     *logger.Logger
}

// NewLibraryManager loads all four collections from store.
func NewLibraryManager(ctx context.Context, store DocumentStore, opts Options) (*LibraryManager, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	lm := &LibraryManager{store: store, gateway: NewGateway(store), log: log}

	snap, err := lm.gateway.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	if lm.catalog, err = loadCatalog(snap.Books); err != nil {
		return nil, err
	}
	if lm.members, err = loadMembership(snap.Members); err != nil {
		return nil, err
	}
	if lm.users, err = loadUsers(snap.Users); err != nil {
		return nil, err
	}

	ledgerOpts := []LedgerOption{WithFlusher(lm), WithLogger(log)}
	if opts.Policy != (Policy{}) {
		ledgerOpts = append(ledgerOpts, WithPolicy(opts.Policy))
	}
	if opts.Clock != nil {
		ledgerOpts = append(ledgerOpts, WithClock(opts.Clock))
	}
	if opts.NewID != nil {
		ledgerOpts = append(ledgerOpts, WithIDGenerator(opts.NewID))
	}
	if lm.ledger, err = NewLedger(lm.catalog, lm.members, snap.Transactions, ledgerOpts...); err != nil {
		return nil, err
	}

	log.Debug("library loaded",
		"books", lm.catalog.Len(), "members", lm.members.Len(),
		"transactions", len(snap.Transactions), "users", lm.users.Len())

	if opts.SeedAdmin && lm.users.Len() == 0 {
		if _, err := lm.RegisterUser(ctx, DefaultAdminUsername, DefaultAdminPassword, RoleAdmin); err != nil {
			return nil, fmt.Errorf("seed admin account: %w", err)
		}
		log.Warn("created default admin account; change its password", "username", DefaultAdminUsername)
	}
	return lm, nil
}

// Close closes the underlying store when it holds resources.
func (lm *LibraryManager) Close() error {
	if c, ok := lm.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Flush writes the full snapshot: members, books, transactions, users.
func (lm *LibraryManager) Flush(ctx context.Context) error {
	return lm.gateway.Save(ctx, lm.Snapshot())
}

// Snapshot copies the current in-memory state.
func (lm *LibraryManager) Snapshot() Snapshot {
	return Snapshot{
		Books:        lm.catalog.All(),
		Members:      lm.members.All(),
		Transactions: lm.ledger.AllTransactions(),
		Users:        lm.users.All(),
	}
}

func (lm *LibraryManager) Policy() Policy { return lm.ledger.Policy() }
func (lm *LibraryManager) Today() Date    { return lm.ledger.Today() }

// ------------------ Books ------------------

func (lm *LibraryManager) saveBooks(ctx context.Context, op, isbn string) error {
	if err := lm.gateway.SaveBooks(ctx, lm.catalog.All()); err != nil {
		lm.log.Error("save books failed", "op", op, "isbn", isbn, "error", err)
		return persistenceError(op, isbn, err)
	}
	return nil
}

func (lm *LibraryManager) AddBook(ctx context.Context, isbn, title, author string, copies int) (Book, error) {
	b, err := lm.catalog.Add(isbn, title, author, copies)
	if err != nil {
		return Book{}, err
	}
	lm.log.Info("book added", "isbn", isbn, "copies", copies)
	return b, lm.saveBooks(ctx, "add book", isbn)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, isbn, title, author string, copies int) (Book, error) {
	b, err := lm.catalog.Update(isbn, title, author, copies)
	if err != nil {
		return Book{}, err
	}
	return b, lm.saveBooks(ctx, "update book", isbn)
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, isbn string) error {
	if err := lm.catalog.Delete(isbn); err != nil {
		return err
	}
	lm.log.Info("book deleted", "isbn", isbn)
	return lm.saveBooks(ctx, "delete book", isbn)
}

func (lm *LibraryManager) GetBook(isbn string) (Book, error) { return lm.catalog.FindByISBN(isbn) }
func (lm *LibraryManager) GetAllBooks() []Book              { return lm.catalog.All() }
func (lm *LibraryManager) SearchByTitle(q string) []Book    { return lm.catalog.SearchByTitle(q) }
func (lm *LibraryManager) SearchByAuthor(q string) []Book   { return lm.catalog.SearchByAuthor(q) }
func (lm *LibraryManager) MostBorrowed(n int) []Book        { return lm.catalog.MostBorrowed(n) }

// SearchBooks matches q against title or author, in catalog order.
func (lm *LibraryManager) SearchBooks(q string) []Book {
	seen := make(map[string]bool)
	for _, b := range lm.catalog.SearchByTitle(q) {
		seen[b.ISBN] = true
	}
	for _, b := range lm.catalog.SearchByAuthor(q) {
		seen[b.ISBN] = true
	}
	out := []Book{}
	for _, b := range lm.catalog.All() {
		if seen[b.ISBN] {
			out = append(out, b)
		}
	}
	return out
}

// ------------------ Members ------------------

func (lm *LibraryManager) saveMembers(ctx context.Context) error {
	return lm.gateway.SaveMembers(ctx, lm.members.All())
}

func (lm *LibraryManager) AddMember(ctx context.Context, id, name, email string) (Member, error) {
	m, err := lm.members.Add(id, name, email)
	if err != nil {
		return Member{}, err
	}
	lm.log.Info("member added", "member_id", id, "email", email)
	if err := lm.saveMembers(ctx); err != nil {
		lm.log.Error("save members failed", "member_id", id, "error", err)
		return m, persistenceError("add member", id, err)
	}
	return m, nil
}

func (lm *LibraryManager) UpdateMember(ctx context.Context, id, name, email string) (Member, error) {
	m, err := lm.members.Update(id, name, email)
	if err != nil {
		return Member{}, err
	}
	if err := lm.saveMembers(ctx); err != nil {
		lm.log.Error("save members failed", "member_id", id, "error", err)
		return m, persistenceError("update member", id, err)
	}
	return m, nil
}

// DeleteMember is all-or-nothing: if the registry cannot be saved the member
// is restored.
func (lm *LibraryManager) DeleteMember(ctx context.Context, id string) error {
	err := lm.members.Delete(id, func() error { return lm.saveMembers(ctx) })
	if err != nil {
		if KindOf(err) == KindPersistenceFailure {
			lm.log.Error("delete member rolled back", "member_id", id, "error", err)
		}
		return err
	}
	lm.log.Info("member deleted", "member_id", id)
	return nil
}

func (lm *LibraryManager) GetMember(id string) (Member, error) { return lm.members.FindByID(id) }
func (lm *LibraryManager) GetAllMembers() []Member             { return lm.members.All() }

// CanMemberBorrow applies the configured borrow limit.
func (lm *LibraryManager) CanMemberBorrow(id string) (bool, error) {
	return lm.members.CanBorrowMore(id, lm.Policy().BorrowLimit)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) IssueBook(ctx context.Context, memberID, isbn string) (Transaction, error) {
	return lm.ledger.Issue(ctx, memberID, isbn)
}

func (lm *LibraryManager) ReturnBook(ctx context.Context, transactionID string) (Transaction, error) {
	return lm.ledger.Return(ctx, transactionID)
}

func (lm *LibraryManager) HasOverdueBooks(memberID string) bool {
	return lm.ledger.HasOverdueBooks(memberID)
}

func (lm *LibraryManager) ActiveTransactions(memberID string) []Transaction {
	return lm.ledger.ActiveTransactions(memberID)
}

func (lm *LibraryManager) AllTransactions() []Transaction { return lm.ledger.AllTransactions() }
func (lm *LibraryManager) OverdueTransactions() []Transaction {
	return lm.ledger.Overdue()
}

func (lm *LibraryManager) GetTransaction(id string) (Transaction, error) { return lm.ledger.Find(id) }

func (lm *LibraryManager) CurrentFine(id string) (float64, error) { return lm.ledger.CurrentFine(id) }

func (lm *LibraryManager) Stats() Stats { return lm.ledger.Stats() }

// ------------------ Users ------------------

// RegisterUser creates an account and saves the full snapshot.
func (lm *LibraryManager) RegisterUser(ctx context.Context, username, password string, role Role) (User, error) {
	u, err := lm.users.Register(username, password, role)
	if err != nil {
		return User{}, err
	}
	lm.log.Info("user registered", "username", username, "role", string(role))
	if err := lm.Flush(ctx); err != nil {
		lm.log.Error("save after register failed", "username", username, "error", err)
		return u, persistenceError("register", username, err)
	}
	return u, nil
}

func (lm *LibraryManager) Login(username, password string) (User, error) {
	u, err := lm.users.Login(username, password)
	if err != nil {
		lm.log.Warn("login failed", "username", username)
		return User{}, err
	}
	return u, nil
}
