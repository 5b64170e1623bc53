package library

import (
	"errors"
	"testing"
)

func TestCatalogAddAndFind(t *testing.T) {
	c := NewCatalog()
	b, err := c.Add("1", "Dune", "Frank Herbert", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if b.AvailableCopies != 2 || b.TimesBorrowed != 0 {
		t.Fatalf("new book: %+v", b)
	}
	if _, err := c.Add("1", "Other", "X", 1); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate: want AlreadyExists, got %v", err)
	}
	if _, err := c.Add("2", "Neg", "X", -1); KindOf(err) != KindInvalidState {
		t.Fatalf("negative copies: want InvalidState, got %v", err)
	}
	got, err := c.FindByISBN("1")
	if err != nil || got.Title != "Dune" {
		t.Fatalf("find: %+v %v", got, err)
	}
	if _, err := c.FindByISBN("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find missing: %v", err)
	}
}

func TestCatalogUpdatePreservesBorrowedCopies(t *testing.T) {
	c := NewCatalog()
	c.Add("1", "T", "A", 3)
	if err := c.Checkout("1"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := c.Checkout("1"); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	b, err := c.Update("1", "T2", "A2", 5)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if b.Title != "T2" || b.Author != "A2" || b.TotalCopies != 5 || b.AvailableCopies != 3 {
		t.Fatalf("after grow: %+v", b)
	}

	b, err = c.Update("1", "T2", "A2", 2)
	if err != nil {
		t.Fatalf("shrink to borrowed: %v", err)
	}
	if b.AvailableCopies != 0 {
		t.Fatalf("after shrink: %+v", b)
	}

	if _, err := c.Update("1", "T2", "A2", 1); KindOf(err) != KindInvalidState {
		t.Fatalf("shrink below borrowed: want InvalidState, got %v", err)
	}
	if got, _ := c.FindByISBN("1"); got.TotalCopies != 2 {
		t.Fatalf("rejected update must not change the book: %+v", got)
	}
	if _, err := c.Update("x", "T", "A", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestCatalogDelete(t *testing.T) {
	c := NewCatalog()
	c.Add("1", "T", "A", 1)
	c.Checkout("1")

	if err := c.Delete("1"); KindOf(err) != KindInvalidState {
		t.Fatalf("delete with copy out: want InvalidState, got %v", err)
	}
	c.Checkin("1")
	if err := c.Delete("1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete("1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("want empty catalog")
	}
}

func TestCatalogSearch(t *testing.T) {
	c := NewCatalog()
	c.Add("1", "The Go Programming Language", "Donovan", 1)
	c.Add("2", "Learning Go", "Bodner", 1)
	c.Add("3", "Dune", "Herbert", 1)

	got := c.SearchByTitle("go")
	if len(got) != 2 || got[0].ISBN != "1" || got[1].ISBN != "2" {
		t.Fatalf("title search: %+v", got)
	}
	if got := c.SearchByAuthor("HERB"); len(got) != 1 || got[0].ISBN != "3" {
		t.Fatalf("author search: %+v", got)
	}
	if got := c.SearchByTitle("zzz"); got == nil || len(got) != 0 {
		t.Fatalf("no match must be an empty, non-nil slice: %#v", got)
	}
	if got := c.SearchByTitle(""); len(got) != 3 {
		t.Fatalf("empty query matches everything, got %d", len(got))
	}
}

func TestCatalogMostBorrowed(t *testing.T) {
	c := NewCatalog()
	c.Add("a", "A", "x", 5)
	c.Add("b", "B", "x", 5)
	c.Add("c", "C", "x", 5)
	for _, isbn := range []string{"b", "b", "c", "a", "c"} {
		c.Checkout(isbn)
	}

	got := c.MostBorrowed(2)
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	// b and c tie on 2; catalog order breaks the tie.
	if got[0].ISBN != "b" || got[1].ISBN != "c" {
		t.Fatalf("order: %s, %s", got[0].ISBN, got[1].ISBN)
	}
	if got := c.MostBorrowed(10); len(got) != 3 {
		t.Fatalf("n larger than catalog: %d", len(got))
	}
	if got := c.MostBorrowed(0); len(got) != 0 {
		t.Fatalf("n=0: %d", len(got))
	}
}

func TestCatalogCheckoutCheckin(t *testing.T) {
	c := NewCatalog()
	c.Add("1", "T", "A", 1)

	if err := c.Checkin("1"); KindOf(err) != KindInvalidState {
		t.Fatalf("checkin full shelf: %v", err)
	}
	if err := c.Checkout("1"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := c.Checkout("1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("checkout empty shelf: %v", err)
	}
	b, _ := c.FindByISBN("1")
	if b.AvailableCopies != 0 || b.TimesBorrowed != 1 || b.BorrowedCopies() != 1 {
		t.Fatalf("after checkout: %+v", b)
	}
	if c.AvailableCopies() != 0 || c.TotalCopies() != 1 {
		t.Fatalf("totals: %d/%d", c.AvailableCopies(), c.TotalCopies())
	}
	if err := c.Checkout("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("checkout missing: %v", err)
	}
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	if _, err := loadCatalog([]Book{{ISBN: "1"}, {ISBN: "1"}}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("want AlreadyExists, got %v", err)
	}
}
