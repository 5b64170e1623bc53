package library

import (
	"errors"
	"fmt"
)

// Kind classifies why a circulation operation was refused.
type Kind int

const (
	KindUnknown Kind = iota
	KindAlreadyExists
	KindNotFound
	KindInvalidState
	KindUnavailable
	KindLimitReached
	KindOverdueBlock
	KindPersistenceFailure
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already exists"
	case KindNotFound:
		return "not found"
	case KindInvalidState:
		return "invalid state"
	case KindUnavailable:
		return "unavailable"
	case KindLimitReached:
		return "borrow limit reached"
	case KindOverdueBlock:
		return "overdue loans outstanding"
	case KindPersistenceFailure:
		return "persistence failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrUnavailable        = errors.New("unavailable")
	ErrLimitReached       = errors.New("borrow limit reached")
	ErrOverdueBlock       = errors.New("overdue loans outstanding")
	ErrPersistenceFailure = errors.New("persistence failure")
)

var sentinels = map[Kind]error{
	KindAlreadyExists:      ErrAlreadyExists,
	KindNotFound:           ErrNotFound,
	KindInvalidState:       ErrInvalidState,
	KindUnavailable:        ErrUnavailable,
	KindLimitReached:       ErrLimitReached,
	KindOverdueBlock:       ErrOverdueBlock,
	KindPersistenceFailure: ErrPersistenceFailure,
}

// Error is returned by every catalog, membership and ledger operation that
// refuses a request. Op names the operation, ID the record it was about.
type Error struct {
	Kind   Kind
	Op     string
	ID     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": "
	if e.ID != "" {
		msg += fmt.Sprintf("%q: ", e.ID)
	}
	if e.Reason != "" {
		msg += e.Reason
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) and friends match on the kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf reports the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, id, reason string) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Reason: reason}
}

func persistenceError(op, id string, err error) *Error {
	return &Error{Kind: KindPersistenceFailure, Op: op, ID: id, Reason: "save failed", Err: err}
}
