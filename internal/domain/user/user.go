package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an e-mail that is already in use.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidStatus is returned for statuses other than in-progress and blocked.
	ErrInvalidStatus = errors.New("invalid user status")
)

// Role grants access to groups of endpoints.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status is the account state. Blocked users cannot log in.
type Status string

const (
	StatusActive  Status = "in-progress"
	StatusBlocked Status = "blocked"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusBlocked
}

// User is a registered account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Address      string
	Role         Role
	Status       Status
	IsDeleted    bool
	// PasswordChangedAt is nil until the password is changed for the first
	// time. Tokens issued before it are rejected.
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
}

// Repository defines account persistence.
type Repository interface {
	// Create returns ErrEmailTaken when the e-mail is already registered.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
}
