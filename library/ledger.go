package library

import (
	"context"

	"github.com/google/uuid"

	"library-circulation/logger"
)

// Flusher writes the full in-memory state to durable storage.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlusherFunc adapts a function to Flusher.
type FlusherFunc func(ctx context.Context) error

func (f FlusherFunc) Flush(ctx context.Context) error { return f(ctx) }

// Ledger is the append-only record of loans. It is the only component that
// mutates Catalog and Membership together, and the only one with a state
// machine: a Transaction goes ACTIVE -> RETURNED exactly once.
type Ledger struct {
	catalog *Catalog
	members *Membership
	txns    *ordered[Transaction]

	policy  Policy
	clock   func() Date
	newID   func() string
	flusher Flusher
	log     *logger.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

func WithPolicy(p Policy) LedgerOption { return func(l *Ledger) { l.policy = p } }

// WithClock replaces the source of "today".
func WithClock(clock func() Date) LedgerOption { return func(l *Ledger) { l.clock = clock } }

func WithIDGenerator(gen func() string) LedgerOption { return func(l *Ledger) { l.newID = gen } }

func WithFlusher(f Flusher) LedgerOption { return func(l *Ledger) { l.flusher = f } }

func WithLogger(log *logger.Logger) LedgerOption { return func(l *Ledger) { l.log = log } }

// NewLedger builds a ledger over catalog and members, replaying history in
// its stored order.
func NewLedger(catalog *Catalog, members *Membership, history []Transaction, opts ...LedgerOption) (*Ledger, error) {
	l := &Ledger{
		catalog: catalog,
		members: members,
		txns:    newOrdered[Transaction](),
		policy:  DefaultPolicy(),
		clock:   Today,
		newID:   func() string { return uuid.NewString() },
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, t := range history {
		if l.txns.has(t.ID) {
			return nil, newError(KindAlreadyExists, "load transactions", t.ID, "duplicate transaction id in stored ledger")
		}
		t = t.clone()
		l.txns.add(t.ID, &t)
	}
	return l, nil
}

func (l *Ledger) Policy() Policy { return l.policy }

func (l *Ledger) Today() Date { return l.clock() }

// Issue lends a copy of isbn to memberID. Checks run in a fixed order and
// the first failure is returned with nothing changed. If the loan is
// recorded but cannot be saved, the transaction is returned together with a
// persistence failure; the in-memory loan stands.
func (l *Ledger) Issue(ctx context.Context, memberID, isbn string) (Transaction, error) {
	const op = "issue"
	member, ok := l.members.members.get(memberID)
	if !ok {
		return Transaction{}, newError(KindNotFound, op, memberID, "member not found")
	}
	book, ok := l.catalog.books.get(isbn)
	if !ok {
		return Transaction{}, newError(KindNotFound, op, isbn, "book not found")
	}
	if !book.IsAvailable() {
		return Transaction{}, newError(KindUnavailable, op, isbn, "no copies available")
	}
	if len(member.BorrowedISBNs) >= l.policy.BorrowLimit {
		return Transaction{}, newError(KindLimitReached, op, memberID, "member has reached the borrowing limit")
	}
	if l.HasOverdueBooks(memberID) {
		return Transaction{}, newError(KindOverdueBlock, op, memberID, "member has overdue books")
	}

	today := l.clock()
	if err := l.catalog.Checkout(isbn); err != nil {
		return Transaction{}, err
	}
	// A second copy of a title the member already holds is one set entry.
	if !member.HasBorrowed(isbn) {
		member.BorrowedISBNs = append(member.BorrowedISBNs, isbn)
	}
	t := &Transaction{
		ID:         l.newID(),
		MemberID:   memberID,
		MemberName: member.Name,
		ISBN:       isbn,
		BookTitle:  book.Title,
		IssueDate:  today,
		DueDate:    today.AddDays(l.policy.LoanPeriodDays),
		Active:     true,
	}
	l.txns.add(t.ID, t)
	l.log.Info("book issued", "transaction_id", t.ID, "member_id", memberID, "isbn", isbn, "due", t.DueDate.String())

	return t.clone(), l.flush(ctx, op, t.ID)
}

// Return closes an active loan, freezing its fine as of today.
func (l *Ledger) Return(ctx context.Context, transactionID string) (Transaction, error) {
	const op = "return"
	t, ok := l.txns.get(transactionID)
	if !ok || !t.Active {
		return Transaction{}, newError(KindNotFound, op, transactionID, "no active transaction")
	}
	book, ok := l.catalog.books.get(t.ISBN)
	if !ok || book.BorrowedCopies() == 0 {
		return Transaction{}, newError(KindInvalidState, op, transactionID, "catalog has no checked-out copy of "+t.ISBN)
	}
	member, ok := l.members.members.get(t.MemberID)
	if !ok {
		return Transaction{}, newError(KindInvalidState, op, transactionID, "member "+t.MemberID+" no longer exists")
	}

	today := l.clock()
	fine := Fine(t.DueDate, today, l.policy.FinePerDay)
	t.ReturnDate = &today
	t.Fine = fine
	t.Active = false
	if err := l.catalog.Checkin(t.ISBN); err != nil {
		return Transaction{}, err
	}
	if !l.holdsAnother(t.MemberID, t.ISBN) && member.HasBorrowed(t.ISBN) {
		if err := l.members.RemoveBorrowed(t.MemberID, t.ISBN); err != nil {
			return Transaction{}, err
		}
	}
	l.log.Info("book returned", "transaction_id", t.ID, "member_id", t.MemberID, "isbn", t.ISBN, "fine", fine)

	return t.clone(), l.flush(ctx, op, t.ID)
}

// holdsAnother reports whether memberID still has an active loan of isbn.
func (l *Ledger) holdsAnother(memberID, isbn string) bool {
	found := false
	l.txns.each(func(t *Transaction) bool {
		if t.Active && t.MemberID == memberID && t.ISBN == isbn {
			found = true
		}
		return !found
	})
	return found
}

func (l *Ledger) flush(ctx context.Context, op, id string) error {
	if l.flusher == nil {
		return nil
	}
	if err := l.flusher.Flush(ctx); err != nil {
		l.log.Error("save after "+op+" failed; in-memory state kept", "transaction_id", id, "error", err)
		return persistenceError(op, id, err)
	}
	return nil
}

// HasOverdueBooks reports whether memberID has an active loan whose due date
// is strictly before today.
func (l *Ledger) HasOverdueBooks(memberID string) bool {
	today := l.clock()
	overdue := false
	l.txns.each(func(t *Transaction) bool {
		if t.MemberID == memberID && t.IsOverdue(today) {
			overdue = true
		}
		return !overdue
	})
	return overdue
}

// ActiveTransactions lists memberID's open loans in ledger order.
func (l *Ledger) ActiveTransactions(memberID string) []Transaction {
	return l.collect(func(t *Transaction) bool { return t.Active && t.MemberID == memberID })
}

// Overdue lists every overdue loan in ledger order.
func (l *Ledger) Overdue() []Transaction {
	today := l.clock()
	return l.collect(func(t *Transaction) bool { return t.IsOverdue(today) })
}

// AllTransactions is the full ledger in insertion order.
func (l *Ledger) AllTransactions() []Transaction {
	return l.collect(func(*Transaction) bool { return true })
}

func (l *Ledger) collect(keep func(*Transaction) bool) []Transaction {
	out := []Transaction{}
	l.txns.each(func(t *Transaction) bool {
		if keep(t) {
			out = append(out, t.clone())
		}
		return true
	})
	return out
}

func (l *Ledger) Find(transactionID string) (Transaction, error) {
	t, ok := l.txns.get(transactionID)
	if !ok {
		return Transaction{}, newError(KindNotFound, "find transaction", transactionID, "")
	}
	return t.clone(), nil
}

// CurrentFine is what the loan would cost if returned today; for a returned
// loan it is the fine frozen at return.
func (l *Ledger) CurrentFine(transactionID string) (float64, error) {
	t, ok := l.txns.get(transactionID)
	if !ok {
		return 0, newError(KindNotFound, "current fine", transactionID, "")
	}
	if !t.Active {
		return t.Fine, nil
	}
	return Fine(t.DueDate, l.clock(), l.policy.FinePerDay), nil
}

// Stats summarises the library for the dashboard.
type Stats struct {
	Titles          int
	TotalCopies     int
	AvailableCopies int
	BorrowedBooks   int
	OverdueLoans    int
	Members         int
	Transactions    int
}

func (l *Ledger) Stats() Stats {
	today := l.clock()
	s := Stats{
		Titles:          l.catalog.Len(),
		TotalCopies:     l.catalog.TotalCopies(),
		AvailableCopies: l.catalog.AvailableCopies(),
		Members:         l.members.Len(),
		Transactions:    l.txns.len(),
	}
	l.txns.each(func(t *Transaction) bool {
		if t.Active {
			s.BorrowedBooks++
		}
		if t.IsOverdue(today) {
			s.OverdueLoans++
		}
		return true
	})
	return s
}
