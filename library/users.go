package library

import (
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Users is the account directory that gates the interactive shell.
type Users struct {
	users *ordered[User]
	cost  int
}

func NewUsers() *Users {
	return &Users{users: newOrdered[User](), cost: bcrypt.DefaultCost}
}

func loadUsers(users []User) (*Users, error) {
	u := NewUsers()
	for _, usr := range users {
		if u.users.has(usr.Username) {
			return nil, newError(KindAlreadyExists, "load users", usr.Username, "duplicate username in stored directory")
		}
		u.users.add(usr.Username, &usr)
	}
	return u, nil
}

// Register creates an account. Passwords shorter than six characters and
// roles other than ADMIN or MEMBER are refused.
func (u *Users) Register(username, password string, role Role) (User, error) {
	const op = "register"
	if u.users.has(username) {
		return User{}, newError(KindAlreadyExists, op, username, "")
	}
	if len(password) < minPasswordLength {
		return User{}, newError(KindInvalidState, op, username, "password must be at least 6 characters")
	}
	if !role.Valid() {
		return User{}, newError(KindInvalidState, op, username, "role must be ADMIN or MEMBER")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return User{}, &Error{Kind: KindInvalidState, Op: op, ID: username, Reason: "hash password", Err: err}
	}
	usr := &User{Username: username, PasswordHash: string(hash), Role: role}
	u.users.add(username, usr)
	return *usr, nil
}

// Login returns the account when the password matches. An unknown user and
// a wrong password are reported the same way.
func (u *Users) Login(username, password string) (User, error) {
	usr, ok := u.users.get(username)
	if !ok {
		return User{}, newError(KindNotFound, "login", username, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return User{}, newError(KindNotFound, "login", username, "invalid username or password")
	}
	return *usr, nil
}

func (u *Users) All() []User {
	out := make([]User, 0, u.users.len())
	u.users.each(func(usr *User) bool {
		out = append(out, *usr)
		return true
	})
	return out
}

func (u *Users) Len() int { return u.users.len() }
