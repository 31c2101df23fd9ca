package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an account known to the auction house. Credentials live elsewhere.
type User struct {
	ID        uuid.UUID
	Role      Role
	FirstName string
	LastName  string
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

// UserRepository returns ErrUserNotFound for unknown ids.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
