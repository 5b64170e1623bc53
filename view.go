package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"library-circulation/library"
)

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-15s %-30s %-25s %-10s %-10s %s\n", "ISBN", "Title", "Author", "Available", "Total", "Borrowed")
	fmt.Fprintln(w, strings.Repeat("-", 105))
	for _, b := range books {
		fmt.Fprintf(w, "%-15s %-30s %-25s %-10d %-10d %d\n",
			truncateString(b.ISBN, 15),
			truncateString(b.Title, 30),
			truncateString(b.Author, 25),
			b.AvailableCopies,
			b.TotalCopies,
			b.TimesBorrowed)
	}
}

func printBook(w io.Writer, b library.Book) {
	fmt.Fprintf(w, "ISBN:            %s\n", b.ISBN)
	fmt.Fprintf(w, "Title:           %s\n", b.Title)
	fmt.Fprintf(w, "Author:          %s\n", b.Author)
	fmt.Fprintf(w, "Copies:          %d available of %d\n", b.AvailableCopies, b.TotalCopies)
	fmt.Fprintf(w, "Times borrowed:  %d\n", b.TimesBorrowed)
}

func printMembers(w io.Writer, members []library.Member) {
	if len(members) == 0 {
		fmt.Fprintln(w, "No members registered.")
		return
	}
	fmt.Fprintf(w, "%-10s %-30s %-30s %s\n", "ID", "Name", "Email", "Books")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, m := range members {
		fmt.Fprintf(w, "%-10s %-30s %-30s %d\n",
			truncateString(m.ID, 10),
			truncateString(m.Name, 30),
			truncateString(m.Email, 30),
			m.BorrowedCount())
	}
}

func printMember(w io.Writer, m library.Member) {
	fmt.Fprintf(w, "ID:     %s\n", m.ID)
	fmt.Fprintf(w, "Name:   %s\n", m.Name)
	fmt.Fprintf(w, "Email:  %s\n", m.Email)
	if len(m.BorrowedISBNs) == 0 {
		fmt.Fprintln(w, "Books:  none")
		return
	}
	fmt.Fprintf(w, "Books:  %s\n", strings.Join(m.BorrowedISBNs, ", "))
}

// printTransactions lists loans. Active ones show the fine they would incur
// if returned today at rate per day.
func printTransactions(w io.Writer, txns []library.Transaction, today library.Date, rate float64) {
	if len(txns) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	fmt.Fprintf(w, "%-36s %-20s %-25s %-10s %-10s %-10s %-8s %s\n",
		"Transaction", "Member", "Book", "Issued", "Due", "Returned", "Status", "Fine")
	fmt.Fprintln(w, strings.Repeat("-", 135))
	for _, t := range txns {
		returned := "-"
		if t.ReturnDate != nil {
			returned = t.ReturnDate.String()
		}
		fine := t.Fine
		if t.Active {
			fine = library.Fine(t.DueDate, today, rate)
		}
		fmt.Fprintf(w, "%-36s %-20s %-25s %-10s %-10s %-10s %-8s %.2f\n",
			t.ID,
			truncateString(t.MemberName, 20),
			truncateString(t.BookTitle, 25),
			t.IssueDate,
			t.DueDate,
			returned,
			t.Status(today),
			fine)
	}
}

func printTransaction(w io.Writer, t library.Transaction, today library.Date, fine float64) {
	fmt.Fprintf(w, "Transaction:  %s\n", t.ID)
	fmt.Fprintf(w, "Member:       %s (%s)\n", t.MemberName, t.MemberID)
	fmt.Fprintf(w, "Book:         %s (%s)\n", t.BookTitle, t.ISBN)
	fmt.Fprintf(w, "Issued:       %s\n", t.IssueDate)
	fmt.Fprintf(w, "Due:          %s\n", t.DueDate)
	switch t.Status(today) {
	case library.StatusReturned:
		fmt.Fprintf(w, "Returned:     %s\n", t.ReturnDate.String())
	case library.StatusOverdue:
		fmt.Fprintf(w, "Overdue by:   %d day(s)\n", t.DaysOverdue(today))
	default:
		fmt.Fprintf(w, "Due in:       %d day(s)\n", t.DaysUntilDue(today))
	}
	fmt.Fprintf(w, "Status:       %s\n", t.Status(today))
	fmt.Fprintf(w, "Fine:         %.2f\n", fine)
}

func printStats(w io.Writer, s library.Stats) {
	fmt.Fprintf(w, "%-20s %d\n", "Titles:", s.Titles)
	fmt.Fprintf(w, "%-20s %d\n", "Total copies:", s.TotalCopies)
	fmt.Fprintf(w, "%-20s %d\n", "Available copies:", s.AvailableCopies)
	fmt.Fprintf(w, "%-20s %d\n", "Books on loan:", s.BorrowedBooks)
	fmt.Fprintf(w, "%-20s %d\n", "Overdue loans:", s.OverdueLoans)
	fmt.Fprintf(w, "%-20s %d\n", "Members:", s.Members)
	fmt.Fprintf(w, "%-20s %d\n", "Transactions:", s.Transactions)
}

// describe turns a library error into a line for the terminal.
func describe(err error) string {
	var le *library.Error
	if !errors.As(err, &le) {
		return err.Error()
	}
	switch le.Kind {
	case library.KindPersistenceFailure:
		return fmt.Sprintf("change applied but could not be saved: %v", le.Err)
	case library.KindLimitReached:
		return fmt.Sprintf("member %s has reached the borrowing limit", le.ID)
	case library.KindOverdueBlock:
		return fmt.Sprintf("member %s has overdue books", le.ID)
	}
	return err.Error()
}

// truncateString shortens s to max runes, marking the cut with "...".
func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
