package library

const (
	DefaultBorrowLimit    = 3
	DefaultLoanPeriodDays = 14
	DefaultFinePerDay     = 1.0
)

// Policy holds the circulation rules.
type Policy struct {
	BorrowLimit    int
	LoanPeriodDays int
	FinePerDay     float64
}

func DefaultPolicy() Policy {
	return Policy{
		BorrowLimit:    DefaultBorrowLimit,
		LoanPeriodDays: DefaultLoanPeriodDays,
		FinePerDay:     DefaultFinePerDay,
	}
}

// Fine charges ratePerDay for every whole calendar day eval is past due.
// Returning on or before the due date costs nothing.
func Fine(due, eval Date, ratePerDay float64) float64 {
	days := max(0, due.DaysUntil(eval))
	return float64(days) * ratePerDay
}
