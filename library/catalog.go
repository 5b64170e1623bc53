package library

import (
	"slices"
	"strings"
)

// Catalog owns the Book records. It is purely in-memory; callers decide when
// the collection is written out.
type Catalog struct {
	books *ordered[Book]
}

func NewCatalog() *Catalog {
	return &Catalog{books: newOrdered[Book]()}
}

// loadCatalog rebuilds a Catalog from a persisted collection, keeping its order.
func loadCatalog(books []Book) (*Catalog, error) {
	c := NewCatalog()
	for _, b := range books {
		if c.books.has(b.ISBN) {
			return nil, newError(KindAlreadyExists, "load books", b.ISBN, "duplicate isbn in stored catalog")
		}
		c.books.add(b.ISBN, &b)
	}
	return c, nil
}

func (c *Catalog) Add(isbn, title, author string, totalCopies int) (Book, error) {
	const op = "add book"
	if c.books.has(isbn) {
		return Book{}, newError(KindAlreadyExists, op, isbn, "")
	}
	if totalCopies < 0 {
		return Book{}, newError(KindInvalidState, op, isbn, "total copies cannot be negative")
	}
	b := &Book{
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}
	c.books.add(isbn, b)
	return *b, nil
}

// Update replaces title, author and capacity. Capacity cannot drop below the
// number of copies currently checked out; that number is preserved.
func (c *Catalog) Update(isbn, title, author string, newTotalCopies int) (Book, error) {
	const op = "update book"
	b, ok := c.books.get(isbn)
	if !ok {
		return Book{}, newError(KindNotFound, op, isbn, "")
	}
	borrowed := b.BorrowedCopies()
	if newTotalCopies < borrowed {
		return Book{}, newError(KindInvalidState, op, isbn, "cannot reduce copies below the number checked out")
	}
	b.Title = title
	b.Author = author
	b.TotalCopies = newTotalCopies
	b.AvailableCopies = newTotalCopies - borrowed
	return *b, nil
}

// Delete removes a title; every copy must be on the shelf.
func (c *Catalog) Delete(isbn string) error {
	const op = "delete book"
	b, ok := c.books.get(isbn)
	if !ok {
		return newError(KindNotFound, op, isbn, "")
	}
	if b.AvailableCopies < b.TotalCopies {
		return newError(KindInvalidState, op, isbn, "copies are still checked out")
	}
	c.books.remove(isbn)
	return nil
}

func (c *Catalog) FindByISBN(isbn string) (Book, error) {
	b, ok := c.books.get(isbn)
	if !ok {
		return Book{}, newError(KindNotFound, "find book", isbn, "")
	}
	return *b, nil
}

func (c *Catalog) SearchByTitle(q string) []Book {
	return c.filter(func(b *Book) string { return b.Title }, q)
}

func (c *Catalog) SearchByAuthor(q string) []Book {
	return c.filter(func(b *Book) string { return b.Author }, q)
}

func (c *Catalog) filter(field func(*Book) string, q string) []Book {
	needle := strings.ToLower(q)
	out := []Book{}
	c.books.each(func(b *Book) bool {
		if strings.Contains(strings.ToLower(field(b)), needle) {
			out = append(out, *b)
		}
		return true
	})
	return out
}

// MostBorrowed returns up to n titles by TimesBorrowed, highest first. Equal
// counts keep catalog order.
func (c *Catalog) MostBorrowed(n int) []Book {
	if n <= 0 {
		return []Book{}
	}
	all := c.All()
	slices.SortStableFunc(all, func(a, b Book) int { return b.TimesBorrowed - a.TimesBorrowed })
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Checkout takes one copy off the shelf.
func (c *Catalog) Checkout(isbn string) error {
	const op = "checkout"
	b, ok := c.books.get(isbn)
	if !ok {
		return newError(KindNotFound, op, isbn, "")
	}
	if b.AvailableCopies == 0 {
		return newError(KindUnavailable, op, isbn, "no copies available")
	}
	b.AvailableCopies--
	b.TimesBorrowed++
	return nil
}

// Checkin puts one copy back on the shelf.
func (c *Catalog) Checkin(isbn string) error {
	const op = "checkin"
	b, ok := c.books.get(isbn)
	if !ok {
		return newError(KindNotFound, op, isbn, "")
	}
	if b.AvailableCopies == b.TotalCopies {
		return newError(KindInvalidState, op, isbn, "all copies are already on the shelf")
	}
	b.AvailableCopies++
	return nil
}

// All lists every book in insertion order.
func (c *Catalog) All() []Book {
	out := make([]Book, 0, c.books.len())
	c.books.each(func(b *Book) bool {
		out = append(out, *b)
		return true
	})
	return out
}

func (c *Catalog) Len() int { return c.books.len() }

// AvailableCopies sums the copies on the shelf across all titles.
func (c *Catalog) AvailableCopies() int {
	n := 0
	c.books.each(func(b *Book) bool {
		n += b.AvailableCopies
		return true
	})
	return n
}

// TotalCopies sums capacity across all titles.
func (c *Catalog) TotalCopies() int {
	n := 0
	c.books.each(func(b *Book) bool {
		n += b.TotalCopies
		return true
	})
	return n
}
