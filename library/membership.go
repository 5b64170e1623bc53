package library

import "slices"

// Membership owns the Member records and each member's set of borrowed ISBNs.
type Membership struct {
	members *ordered[Member]
}

func NewMembership() *Membership {
	return &Membership{members: newOrdered[Member]()}
}

func loadMembership(members []Member) (*Membership, error) {
	ms := NewMembership()
	for _, m := range members {
		if ms.members.has(m.ID) {
			return nil, newError(KindAlreadyExists, "load members", m.ID, "duplicate member id in stored registry")
		}
		m = m.clone()
		if m.BorrowedISBNs == nil {
			m.BorrowedISBNs = []string{}
		}
		ms.members.add(m.ID, &m)
	}
	return ms, nil
}

func (ms *Membership) Add(id, name, email string) (Member, error) {
	if ms.members.has(id) {
		return Member{}, newError(KindAlreadyExists, "add member", id, "")
	}
	m := &Member{ID: id, Name: name, Email: email, BorrowedISBNs: []string{}}
	ms.members.add(id, m)
	return m.clone(), nil
}

func (ms *Membership) Update(id, name, email string) (Member, error) {
	m, ok := ms.members.get(id)
	if !ok {
		return Member{}, newError(KindNotFound, "update member", id, "")
	}
	m.Name = name
	m.Email = email
	return m.clone(), nil
}

// Delete removes a member who holds no books and then runs commit, which is
// expected to write the collection out. If commit fails the member is put
// back where it was and a persistence failure is returned.
func (ms *Membership) Delete(id string, commit func() error) error {
	const op = "delete member"
	m, ok := ms.members.get(id)
	if !ok {
		return newError(KindNotFound, op, id, "")
	}
	if len(m.BorrowedISBNs) > 0 {
		return newError(KindInvalidState, op, id, "member still has borrowed books")
	}
	pos, removed, _ := ms.members.remove(id)
	if commit == nil {
		return nil
	}
	if err := commit(); err != nil {
		ms.members.insertAt(pos, id, removed)
		return persistenceError(op, id, err)
	}
	return nil
}

func (ms *Membership) FindByID(id string) (Member, error) {
	m, ok := ms.members.get(id)
	if !ok {
		return Member{}, newError(KindNotFound, "find member", id, "")
	}
	return m.clone(), nil
}

// CanBorrowMore reports whether the member holds fewer than limit books.
func (ms *Membership) CanBorrowMore(id string, limit int) (bool, error) {
	m, ok := ms.members.get(id)
	if !ok {
		return false, newError(KindNotFound, "borrow limit", id, "")
	}
	return len(m.BorrowedISBNs) < limit, nil
}

// AddBorrowed records isbn against the member. Adding an ISBN the member
// already holds fails and changes nothing.
func (ms *Membership) AddBorrowed(id, isbn string) error {
	const op = "add borrowed"
	m, ok := ms.members.get(id)
	if !ok {
		return newError(KindNotFound, op, id, "")
	}
	if slices.Contains(m.BorrowedISBNs, isbn) {
		return newError(KindAlreadyExists, op, id, "already holds "+isbn)
	}
	m.BorrowedISBNs = append(m.BorrowedISBNs, isbn)
	return nil
}

func (ms *Membership) RemoveBorrowed(id, isbn string) error {
	const op = "remove borrowed"
	m, ok := ms.members.get(id)
	if !ok {
		return newError(KindNotFound, op, id, "")
	}
	i := slices.Index(m.BorrowedISBNs, isbn)
	if i < 0 {
		return newError(KindNotFound, op, id, "does not hold "+isbn)
	}
	m.BorrowedISBNs = slices.Delete(m.BorrowedISBNs, i, i+1)
	return nil
}

func (ms *Membership) All() []Member {
	out := make([]Member, 0, ms.members.len())
	ms.members.each(func(m *Member) bool {
		out = append(out, m.clone())
		return true
	})
	return out
}

func (ms *Membership) Len() int { return ms.members.len() }
