package library

import "slices"

// Book is a catalog title and the state of its copies.
// JSON field names follow the books.json documents written by earlier
// versions of the application.
type Book struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	TotalCopies     int    `json:"totalCopies"`
	AvailableCopies int    `json:"availableCopies"`
	TimesBorrowed   int    `json:"timesBorrowed"`
}

// BorrowedCopies is the number of copies currently checked out.
func (b Book) BorrowedCopies() int { return b.TotalCopies - b.AvailableCopies }

func (b Book) IsAvailable() bool { return b.AvailableCopies > 0 }

// Member is a registered borrower. BorrowedISBNs has set semantics; order is
// the order in which the books were issued.
type Member struct {
	ID            string   `json:"memberID"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	BorrowedISBNs []string `json:"borrowedBooks"`
}

func (m Member) HasBorrowed(isbn string) bool { return slices.Contains(m.BorrowedISBNs, isbn) }

func (m Member) BorrowedCount() int { return len(m.BorrowedISBNs) }

func (m Member) clone() Member {
	m.BorrowedISBNs = slices.Clone(m.BorrowedISBNs)
	return m
}

// Status is the lifecycle state of a Transaction as shown to users.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusOverdue  Status = "OVERDUE"
	StatusReturned Status = "RETURNED"
)

// Transaction records one loan. MemberName and BookTitle are copied at issue
// time and never updated afterwards.
type Transaction struct {
	ID         string  `json:"transactionID"`
	MemberID   string  `json:"memberID"`
	MemberName string  `json:"memberName"`
	ISBN       string  `json:"isbn"`
	BookTitle  string  `json:"bookTitle"`
	IssueDate  Date    `json:"issueDate"`
	DueDate    Date    `json:"dueDate"`
	ReturnDate *Date   `json:"returnDate"`
	Fine       float64 `json:"fine"`
	Active     bool    `json:"isActive"`
}

// IsOverdue reports whether an active loan's due date is strictly before today.
func (t Transaction) IsOverdue(today Date) bool {
	return t.Active && t.DueDate.Before(today)
}

func (t Transaction) Status(today Date) Status {
	switch {
	case !t.Active:
		return StatusReturned
	case t.IsOverdue(today):
		return StatusOverdue
	default:
		return StatusActive
	}
}

// DaysOverdue is zero for loans that are returned or not yet due.
func (t Transaction) DaysOverdue(today Date) int64 {
	if !t.IsOverdue(today) {
		return 0
	}
	return t.DueDate.DaysUntil(today)
}

// DaysUntilDue is zero once the due date has been reached or the loan returned.
func (t Transaction) DaysUntilDue(today Date) int64 {
	if !t.Active || !today.Before(t.DueDate) {
		return 0
	}
	return today.DaysUntil(t.DueDate)
}

func (t Transaction) clone() Transaction {
	if t.ReturnDate != nil {
		rd := *t.ReturnDate
		t.ReturnDate = &rd
	}
	return t
}

// Role gates what a signed-in user may do from the shell.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMember }

// User is an account that can sign in to the interactive shell.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Role         Role   `json:"role"`
}

func (u User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u User) IsMember() bool { return u.Role == RoleMember }

// Snapshot is the complete durable state: the four collections the gateway
// stores independently.
type Snapshot struct {
	Books        []Book
	Members      []Member
	Transactions []Transaction
	Users        []User
}
