package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/user"
)

const (
	userColumns = `id, email, name, password_hash, address, role, status, is_deleted, password_changed_at, created_at`

	createUserSQL = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	listUsersSQL      = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`

	updateUserStatusSQL   = `UPDATE users SET status = $2 WHERE id = $1`
	updateUserPasswordSQL = `UPDATE users SET password_hash = $2, password_changed_at = $3 WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository returns a UserRepository that runs on q.
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// Create inserts a user. A duplicate e-mail yields user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.q.Exec(ctx, createUserSQL,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Address,
		string(u.Role), string(u.Status), u.IsDeleted, u.PasswordChangedAt, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID returns a single user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

// GetByEmail returns the user registered under email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) getOne(ctx context.Context, sql, arg string) (*user.User, error) {
	rows, err := r.q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// List returns every user in registration order.
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.q.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// UpdateStatus sets the account status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status user.Status) error {
	tag, err := r.q.Exec(ctx, updateUserStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// UpdatePassword stores a new hash and the time it changed.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	tag, err := r.q.Exec(ctx, updateUserPasswordSQL, id, hash, changedAt)
	if err != nil {
		return fmt.Errorf("updating password of user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u            user.User
		role, status string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Address,
		&role, &status, &u.IsDeleted, &u.PasswordChangedAt, &u.CreatedAt,
	)
	u.Role = user.Role(role)
	u.Status = user.Status(status)
	return u, err
}
