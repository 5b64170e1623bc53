package library

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var day0 = NewDate(2024, time.March, 1)

type testClock struct{ today Date }

func (c *testClock) now() Date       { return c.today }
func (c *testClock) advance(days int) { c.today = c.today.AddDays(days) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("T%d", n)
	}
}

// newLedger builds a ledger with one member "M1", a fixed clock at day0 and
// predictable transaction ids.
func newLedger(t *testing.T, opts ...LedgerOption) (*Ledger, *Catalog, *Membership, *testClock) {
	t.Helper()
	c := NewCatalog()
	ms := NewMembership()
	if _, err := ms.Add("M1", "Ada", "ada@example.org"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	clock := &testClock{today: day0}
	opts = append([]LedgerOption{WithClock(clock.now), WithIDGenerator(sequentialIDs())}, opts...)
	l, err := NewLedger(c, ms, nil, opts...)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l, c, ms, clock
}

func TestIssueSameTitleTwiceUntilUnavailable(t *testing.T) {
	ctx := context.Background()
	l, c, ms, _ := newLedger(t)
	c.Add("1", "T", "A", 2)

	for want := 1; want >= 0; want-- {
		if _, err := l.Issue(ctx, "M1", "1"); err != nil {
			t.Fatalf("issue: %v", err)
		}
		if b, _ := c.FindByISBN("1"); b.AvailableCopies != want {
			t.Fatalf("available: want %d, got %d", want, b.AvailableCopies)
		}
	}
	if _, err := l.Issue(ctx, "M1", "1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("third issue: want Unavailable, got %v", err)
	}
	m, _ := ms.FindByID("M1")
	if m.BorrowedCount() != 1 {
		t.Fatalf("borrowed set must hold the isbn once: %v", m.BorrowedISBNs)
	}
	if len(l.ActiveTransactions("M1")) != 2 {
		t.Fatalf("want two active loans")
	}
}

func TestIssueAndLateReturn(t *testing.T) {
	ctx := context.Background()
	l, c, ms, clock := newLedger(t)
	c.Add("1", "Dune", "Herbert", 1)

	txn, err := l.Issue(ctx, "M1", "1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if txn.ID != "T1" || txn.IssueDate != day0 || txn.DueDate != day0.AddDays(14) {
		t.Fatalf("issued txn: %+v", txn)
	}
	if txn.MemberName != "Ada" || txn.BookTitle != "Dune" || !txn.Active || txn.ReturnDate != nil || txn.Fine != 0 {
		t.Fatalf("issued txn snapshot: %+v", txn)
	}
	if b, _ := c.FindByISBN("1"); b.TimesBorrowed != 1 {
		t.Fatalf("times borrowed: %d", b.TimesBorrowed)
	}

	clock.advance(20)
	if got := txn.Status(clock.now()); got != StatusOverdue {
		t.Fatalf("status on day 20: %s", got)
	}
	if fine, _ := l.CurrentFine(txn.ID); fine != 6.0 {
		t.Fatalf("current fine: %v", fine)
	}

	done, err := l.Return(ctx, txn.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if done.Fine != 6.0 || done.ReturnDate == nil || *done.ReturnDate != day0.AddDays(20) || done.Active {
		t.Fatalf("returned txn: %+v", done)
	}
	if done.Status(clock.now()) != StatusReturned {
		t.Fatalf("status after return: %s", done.Status(clock.now()))
	}
	if b, _ := c.FindByISBN("1"); b.AvailableCopies != 1 {
		t.Fatalf("copy not back on shelf: %+v", b)
	}
	if m, _ := ms.FindByID("M1"); m.HasBorrowed("1") {
		t.Fatalf("isbn still recorded against member")
	}

	clock.advance(10)
	if fine, _ := l.CurrentFine(txn.ID); fine != 6.0 {
		t.Fatalf("fine must freeze at return, got %v", fine)
	}
	if _, err := l.Return(ctx, txn.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second return: want NotFound, got %v", err)
	}
}

func TestIssueBorrowLimit(t *testing.T) {
	ctx := context.Background()
	l, c, _, _ := newLedger(t)
	for _, isbn := range []string{"1", "2", "3", "4"} {
		c.Add(isbn, "T"+isbn, "A", 1)
	}
	for _, isbn := range []string{"1", "2", "3"} {
		if _, err := l.Issue(ctx, "M1", isbn); err != nil {
			t.Fatalf("issue %s: %v", isbn, err)
		}
	}
	if _, err := l.Issue(ctx, "M1", "4"); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("fourth issue: want LimitReached, got %v", err)
	}
	if b, _ := c.FindByISBN("4"); b.AvailableCopies != 1 {
		t.Fatalf("refused issue must not touch the catalog")
	}
}

func TestIssueBlockedByOverdueLoan(t *testing.T) {
	ctx := context.Background()
	l, c, _, clock := newLedger(t)
	c.Add("1", "T", "A", 1)
	c.Add("2", "U", "B", 1)

	if _, err := l.Issue(ctx, "M1", "1"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.advance(14)
	if l.HasOverdueBooks("M1") {
		t.Fatalf("due today is not overdue")
	}
	clock.advance(1)
	if !l.HasOverdueBooks("M1") {
		t.Fatalf("want overdue the day after due")
	}
	if _, err := l.Issue(ctx, "M1", "2"); !errors.Is(err, ErrOverdueBlock) {
		t.Fatalf("want OverdueBlock, got %v", err)
	}
	if got := l.Overdue(); len(got) != 1 || got[0].DaysOverdue(clock.now()) != 1 {
		t.Fatalf("overdue list: %+v", got)
	}
}

func TestIssueCheckOrder(t *testing.T) {
	ctx := context.Background()
	l, c, _, _ := newLedger(t, WithPolicy(Policy{BorrowLimit: 1, LoanPeriodDays: 14, FinePerDay: 1}))
	c.Add("1", "T", "A", 1)
	c.Add("empty", "E", "A", 0)
	c.Add("2", "U", "A", 1)

	cases := []struct {
		name     string
		member   string
		isbn     string
		wantKind Kind
	}{
		{"unknown member wins over unknown book", "M9", "nope", KindNotFound},
		{"unknown book", "M1", "nope", KindNotFound},
		{"unavailable before limit", "M1", "empty", KindUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.Issue(ctx, tc.member, tc.isbn); KindOf(err) != tc.wantKind {
				t.Fatalf("want %s, got %v", tc.wantKind, err)
			}
		})
	}

	if _, err := l.Issue(ctx, "M1", "1"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := l.Issue(ctx, "M1", "empty"); KindOf(err) != KindUnavailable {
		t.Fatalf("unavailable must be reported before the limit: %v", err)
	}
	if _, err := l.Issue(ctx, "M1", "2"); KindOf(err) != KindLimitReached {
		t.Fatalf("want LimitReached, got %v", err)
	}
}

func TestReturnKeepsIsbnWhileAnotherCopyIsOut(t *testing.T) {
	ctx := context.Background()
	l, c, ms, _ := newLedger(t)
	c.Add("1", "T", "A", 2)

	first, _ := l.Issue(ctx, "M1", "1")
	second, _ := l.Issue(ctx, "M1", "1")

	if _, err := l.Return(ctx, first.ID); err != nil {
		t.Fatalf("return first: %v", err)
	}
	if m, _ := ms.FindByID("M1"); !m.HasBorrowed("1") {
		t.Fatalf("isbn dropped while a copy is still out")
	}
	if _, err := l.Return(ctx, second.ID); err != nil {
		t.Fatalf("return second: %v", err)
	}
	if m, _ := ms.FindByID("M1"); m.HasBorrowed("1") {
		t.Fatalf("isbn kept after last copy returned")
	}
}

func TestReturnRefusesInconsistentState(t *testing.T) {
	ctx := context.Background()
	l, c, _, _ := newLedger(t)
	c.Add("1", "T", "A", 1)
	txn, _ := l.Issue(ctx, "M1", "1")

	// Someone forced the copy back without going through the ledger.
	c.Checkin("1")
	if _, err := l.Return(ctx, txn.ID); KindOf(err) != KindInvalidState {
		t.Fatalf("want InvalidState, got %v", err)
	}
	if got, _ := l.Find(txn.ID); !got.Active {
		t.Fatalf("refused return must leave the loan active")
	}
	if _, err := l.Return(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown txn: %v", err)
	}
}

func TestIssueAndReturnFlush(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	calls := 0
	flusher := FlusherFunc(func(context.Context) error {
		calls++
		return boom
	})
	l, c, ms, _ := newLedger(t, WithFlusher(flusher))
	c.Add("1", "T", "A", 1)

	txn, err := l.Issue(ctx, "M1", "1")
	if !errors.Is(err, ErrPersistenceFailure) || !errors.Is(err, boom) {
		t.Fatalf("want persistence failure, got %v", err)
	}
	if txn.ID == "" || len(l.ActiveTransactions("M1")) != 1 {
		t.Fatalf("issued loan must stand in memory after a failed save")
	}
	if m, _ := ms.FindByID("M1"); !m.HasBorrowed("1") {
		t.Fatalf("member state rolled back unexpectedly")
	}

	if _, err := l.Return(ctx, txn.ID); !errors.Is(err, ErrPersistenceFailure) {
		t.Fatalf("want persistence failure on return, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("want one flush per mutation, got %d", calls)
	}
}

func TestRefusedIssueDoesNotFlush(t *testing.T) {
	calls := 0
	l, _, _, _ := newLedger(t, WithFlusher(FlusherFunc(func(context.Context) error {
		calls++
		return nil
	})))
	if _, err := l.Issue(context.Background(), "M1", "nope"); err == nil {
		t.Fatalf("want error")
	}
	if calls != 0 {
		t.Fatalf("refused issue flushed %d times", calls)
	}
}

func TestLedgerInvariantsAcrossRandomishWorkload(t *testing.T) {
	ctx := context.Background()
	l, c, ms, clock := newLedger(t)
	ms.Add("M2", "Bob", "")
	ms.Add("M3", "Cy", "")
	c.Add("1", "T1", "A", 2)
	c.Add("2", "T2", "A", 1)
	c.Add("3", "T3", "A", 3)

	members := []string{"M1", "M2", "M3"}
	isbns := []string{"1", "2", "3"}
	var open []string
	for step := 0; step < 60; step++ {
		if step%3 == 2 && len(open) > 0 {
			id := open[0]
			open = open[1:]
			if _, err := l.Return(ctx, id); err != nil {
				t.Fatalf("step %d return: %v", step, err)
			}
		} else {
			txn, err := l.Issue(ctx, members[step%3], isbns[(step/3)%3])
			if err == nil {
				open = append(open, txn.ID)
			}
		}
		clock.advance(1)

		active := map[string]int{}
		for _, txn := range l.AllTransactions() {
			if txn.Active {
				active[txn.ISBN]++
			}
		}
		for _, b := range c.All() {
			if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
				t.Fatalf("step %d: copies out of range %+v", step, b)
			}
			if b.BorrowedCopies() != active[b.ISBN] {
				t.Fatalf("step %d: %s borrowed=%d active=%d", step, b.ISBN, b.BorrowedCopies(), active[b.ISBN])
			}
		}
		for _, m := range ms.All() {
			if m.BorrowedCount() > l.Policy().BorrowLimit {
				t.Fatalf("step %d: %s over limit", step, m.ID)
			}
		}
	}
}

func TestLedgerStats(t *testing.T) {
	ctx := context.Background()
	l, c, ms, clock := newLedger(t)
	ms.Add("M2", "Bob", "")
	c.Add("1", "T", "A", 2)
	c.Add("2", "U", "B", 1)

	t1, _ := l.Issue(ctx, "M1", "1")
	l.Issue(ctx, "M2", "2")
	clock.advance(15)
	l.Return(ctx, t1.ID)

	s := l.Stats()
	want := Stats{Titles: 2, TotalCopies: 3, AvailableCopies: 2, BorrowedBooks: 1, OverdueLoans: 1, Members: 2, Transactions: 2}
	if s != want {
		t.Fatalf("stats:\nwant %+v\n got %+v", want, s)
	}
}

func TestNewLedgerRejectsDuplicateHistory(t *testing.T) {
	_, err := NewLedger(NewCatalog(), NewMembership(), []Transaction{{ID: "T1"}, {ID: "T1"}})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("want AlreadyExists, got %v", err)
	}
}

func TestTransactionDayCounts(t *testing.T) {
	txn := Transaction{Active: true, DueDate: day0.AddDays(14)}
	if got := txn.DaysUntilDue(day0); got != 14 {
		t.Fatalf("days until due: %d", got)
	}
	if got := txn.DaysOverdue(day0); got != 0 {
		t.Fatalf("days overdue before due: %d", got)
	}
	if got := txn.DaysOverdue(day0.AddDays(17)); got != 3 {
		t.Fatalf("days overdue: %d", got)
	}
	if got := txn.DaysUntilDue(day0.AddDays(17)); got != 0 {
		t.Fatalf("days until due once late: %d", got)
	}
	if txn.Status(day0.AddDays(14)) != StatusActive {
		t.Fatalf("due today is still active")
	}
}
