package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/library"
)

const maxLoginAttempts = 3

// readOnly lists the shell commands a MEMBER account may run.
var readOnly = map[string]bool{
	"list books":   true,
	"search book":  true,
	"show book":    true,
	"top books":    true,
	"show member":  true,
	"member loans": true,
	"show loan":    true,
	"stats":        true,
	"help":         true,
	"exit":         true,
}

func (a *app) runShell(cmd *cobra.Command) error {
	ctx := cmd.Context()

	fmt.Fprintln(a.out, "Welcome to the Library Circulation System!")
	user, ok := a.login()
	if !ok {
		return fmt.Errorf("login failed")
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.Username, user.Role)
	a.printHelp(user)

	for {
		line, ok := a.prompt("\n> ")
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}
		if !user.IsAdmin() && !readOnly[line] {
			if isCommand(line) {
				fmt.Fprintln(a.out, "That command needs an ADMIN account.")
				continue
			}
		}

		switch line {
		case "add book":
			a.handleAddBook(ctx)
		case "list books":
			printBooks(a.out, a.mgr.GetAllBooks())
		case "search book":
			a.handleSearchBooks()
		case "show book":
			a.handleShowBook()
		case "update book":
			a.handleUpdateBook(ctx)
		case "delete book":
			a.handleDeleteBook(ctx)
		case "top books":
			a.handleTopBooks()
		case "add member":
			a.handleAddMember(ctx)
		case "list members":
			printMembers(a.out, a.mgr.GetAllMembers())
		case "show member":
			a.handleShowMember()
		case "update member":
			a.handleUpdateMember(ctx)
		case "delete member":
			a.handleDeleteMember(ctx)
		case "member loans":
			a.handleMemberLoans()
		case "issue":
			a.handleIssue(ctx)
		case "return":
			a.handleReturn(ctx)
		case "show loan":
			a.handleShowLoan()
		case "list loans":
			printTransactions(a.out, a.mgr.AllTransactions(), a.mgr.Today(), a.mgr.Policy().FinePerDay)
		case "overdue":
			printTransactions(a.out, a.mgr.OverdueTransactions(), a.mgr.Today(), a.mgr.Policy().FinePerDay)
		case "stats":
			printStats(a.out, a.mgr.Stats())
		case "register user":
			a.handleRegisterUser(ctx)
		case "help":
			a.printHelp(user)
		case "exit":
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(a.out, "Unknown command. Type 'help' to see the available commands.")
		}
	}
}

var helpOrder = []struct {
	group    string
	commands []string
}{
	{"Books", []string{"add book", "list books", "search book", "show book", "update book", "delete book", "top books"}},
	{"Members", []string{"add member", "list members", "show member", "update member", "delete member", "member loans"}},
	{"Circulation", []string{"issue", "return", "show loan", "list loans", "overdue"}},
	{"System", []string{"stats", "register user", "help", "exit"}},
}

func isCommand(line string) bool {
	for _, g := range helpOrder {
		if slices.Contains(g.commands, line) {
			return true
		}
	}
	return false
}

func (a *app) printHelp(user library.User) {
	fmt.Fprintln(a.out, "Available commands:")
	for _, g := range helpOrder {
		var allowed []string
		for _, c := range g.commands {
			if user.IsAdmin() || readOnly[c] {
				allowed = append(allowed, c)
			}
		}
		if len(allowed) == 0 {
			continue
		}
		fmt.Fprintf(a.out, "  %s:", g.group)
		for i, c := range allowed {
			if i > 0 {
				fmt.Fprint(a.out, ",")
			}
			fmt.Fprintf(a.out, " %s", c)
		}
		fmt.Fprintln(a.out)
	}
}

func (a *app) login() (library.User, bool) {
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		username, ok := a.prompt("Username: ")
		if !ok {
			return library.User{}, false
		}
		password, err := a.readPassword("Password: ")
		if err != nil {
			fmt.Fprintf(a.out, "Error reading password: %v\n", err)
			return library.User{}, false
		}
		u, err := a.mgr.Login(username, password)
		if err == nil {
			return u, true
		}
		fmt.Fprintf(a.out, "Invalid username or password (%d of %d attempts)\n", attempt, maxLoginAttempts)
	}
	return library.User{}, false
}

// ask prompts for each label in turn; ok is false if input ends early.
func (a *app) ask(labels ...string) ([]string, bool) {
	answers := make([]string, 0, len(labels))
	for _, l := range labels {
		v, ok := a.prompt(l)
		if !ok {
			return nil, false
		}
		answers = append(answers, v)
	}
	return answers, true
}

func (a *app) askInt(label string, fallback int) (int, bool) {
	s, ok := a.prompt(label)
	if !ok {
		return 0, false
	}
	if s == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

func (a *app) handleAddBook(ctx context.Context) {
	in, ok := a.ask("ISBN: ", "Title: ", "Author: ")
	if !ok {
		return
	}
	copies, ok := a.askInt("Copies [1]: ", 1)
	if !ok {
		return
	}
	b, err := a.mgr.AddBook(ctx, in[0], in[1], in[2], copies)
	if err != nil {
		fmt.Fprintf(a.out, "Error adding book: %s\n", describe(err))
		return
	}
	fmt.Fprintf(a.out, "Added '%s' (%s) with %d copies\n", b.Title, b.ISBN, b.TotalCopies)
}

func (a *app) handleSearchBooks() {
	q, ok := a.prompt("Search query (title or author): ")
	if !ok {
		return
	}
	printBooks(a.out, a.mgr.SearchBooks(q))
}

func (a *app) handleShowBook() {
	isbn, ok := a.prompt("ISBN: ")
	if !ok {
		return
	}
	b, err := a.mgr.GetBook(isbn)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	printBook(a.out, b)
}

// handleUpdateBook keeps a field unchanged when its answer is left blank.
func (a *app) handleUpdateBook(ctx context.Context) {
	isbn, ok := a.prompt("ISBN: ")
	if !ok {
		return
	}
	cur, err := a.mgr.GetBook(isbn)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	in, ok := a.ask(fmt.Sprintf("Title [%s]: ", cur.Title), fmt.Sprintf("Author [%s]: ", cur.Author))
	if !ok {
		return
	}
	copies, ok := a.askInt(fmt.Sprintf("Copies [%d]: ", cur.TotalCopies), cur.TotalCopies)
	if !ok {
		return
	}
	title, author := cur.Title, cur.Author
	if in[0] != "" {
		title = in[0]
	}
	if in[1] != "" {
		author = in[1]
	}
	b, err := a.mgr.UpdateBook(ctx, isbn, title, author, copies)
	if err != nil {
		fmt.Fprintf(a.out, "Error updating book: %s\n", describe(err))
		return
	}
	printBook(a.out, b)
}

func (a *app) handleDeleteBook(ctx context.Context) {
	isbn, ok := a.prompt("ISBN: ")
	if !ok {
		return
	}
	if err := a.mgr.DeleteBook(ctx, isbn); err != nil {
		fmt.Fprintf(a.out, "Error deleting book: %s\n", describe(err))
		return
	}
	fmt.Fprintf(a.out, "Deleted %s\n", isbn)
}

func (a *app) handleTopBooks() {
	n, ok := a.askInt("How many [5]: ", 5)
	if !ok {
		return
	}
	printBooks(a.out, a.mgr.MostBorrowed(n))
}

func (a *app) handleAddMember(ctx context.Context) {
	in, ok := a.ask("Member ID: ", "Name: ", "Email: ")
	if !ok {
		return
	}
	m, err := a.mgr.AddMember(ctx, in[0], in[1], in[2])
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", describe(err))
		return
	}
	fmt.Fprintf(a.out, "Added member '%s' with ID %s\n", m.Name, m.ID)
}

func (a *app) handleShowMember() {
	id, ok := a.prompt("Member ID: ")
	if !ok {
		return
	}
	m, err := a.mgr.GetMember(id)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	printMember(a.out, m)
}

func (a *app) handleUpdateMember(ctx context.Context) {
	id, ok := a.prompt("Member ID: ")
	if !ok {
		return
	}
	cur, err := a.mgr.GetMember(id)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	in, ok := a.ask(fmt.Sprintf("Name [%s]: ", cur.Name), fmt.Sprintf("Email [%s]: ", cur.Email))
	if !ok {
		return
	}
	name, email := cur.Name, cur.Email
	if in[0] != "" {
		name = in[0]
	}
	if in[1] != "" {
		email = in[1]
	}
	m, err := a.mgr.UpdateMember(ctx, id, name, email)
	if err != nil {
		fmt.Fprintf(a.out, "Error updating member: %s\n", describe(err))
		return
	}
	printMember(a.out, m)
}

func (a *app) handleDeleteMember(ctx context.Context) {
	id, ok := a.prompt("Member ID: ")
	if !ok {
		return
	}
	if err := a.mgr.DeleteMember(ctx, id); err != nil {
		fmt.Fprintf(a.out, "Error deleting member: %s\n", describe(err))
		return
	}
	fmt.Fprintf(a.out, "Deleted member %s\n", id)
}

func (a *app) handleMemberLoans() {
	id, ok := a.prompt("Member ID: ")
	if !ok {
		return
	}
	if _, err := a.mgr.GetMember(id); err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	printTransactions(a.out, a.mgr.ActiveTransactions(id), a.mgr.Today(), a.mgr.Policy().FinePerDay)
}

func (a *app) handleIssue(ctx context.Context) {
	in, ok := a.ask("Member ID: ", "ISBN: ")
	if !ok {
		return
	}
	t, err := a.mgr.IssueBook(ctx, in[0], in[1])
	if t.ID != "" {
		fmt.Fprintf(a.out, "Book '%s' issued to %s, due %s\n", t.BookTitle, t.MemberName, t.DueDate)
		fmt.Fprintf(a.out, "Transaction: %s\n", t.ID)
	}
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", describe(err))
	}
}

func (a *app) handleReturn(ctx context.Context) {
	id, ok := a.prompt("Transaction ID: ")
	if !ok {
		return
	}
	t, err := a.mgr.ReturnBook(ctx, id)
	if t.ID != "" {
		fmt.Fprintf(a.out, "Book '%s' returned by %s\n", t.BookTitle, t.MemberName)
		if t.Fine > 0 {
			fmt.Fprintf(a.out, "Fine due: %.2f\n", t.Fine)
		} else {
			fmt.Fprintln(a.out, "No fine due")
		}
	}
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", describe(err))
	}
}

func (a *app) handleShowLoan() {
	id, ok := a.prompt("Transaction ID: ")
	if !ok {
		return
	}
	t, err := a.mgr.GetTransaction(id)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	fine, err := a.mgr.CurrentFine(id)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	printTransaction(a.out, t, a.mgr.Today(), fine)
}

func (a *app) handleRegisterUser(ctx context.Context) {
	in, ok := a.ask("Username: ", "Role (ADMIN or MEMBER): ")
	if !ok {
		return
	}
	password, err := a.readPassword(fmt.Sprintf("Enter password for %s: ", in[0]))
	if err != nil {
		fmt.Fprintf(a.out, "Error reading password: %v\n", err)
		return
	}
	u, err := a.mgr.RegisterUser(ctx, in[0], password, library.Role(strings.ToUpper(in[1])))
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", describe(err))
		return
	}
	fmt.Fprintf(a.out, "Registered %s as %s\n", u.Username, u.Role)
}
