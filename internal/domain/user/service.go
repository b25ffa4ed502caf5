package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Address  string
}

// Service manages accounts.
type Service struct {
	users Repository
	cost  int
	now   func() time.Time
}

// NewService creates a Service hashing passwords with the given bcrypt cost.
func NewService(users Repository, bcryptCost int) *Service {
	return &Service{
		users: users,
		cost:  bcryptCost,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return s.create(ctx, in, RoleUser)
}

// EnsureAdmin returns the account registered under in.Email, creating an
// admin account when there is none.
func (s *Service) EnsureAdmin(ctx context.Context, in RegisterInput) (*User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, ErrNotFound):
		return s.create(ctx, in, RoleAdmin)
	default:
		return nil, errors.Wrap(err, "lookup admin")
	}
}

func (s *Service) create(ctx context.Context, in RegisterInput, role Role) (*User, error) {
	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(in.Email),
		Name:         in.Name,
		PasswordHash: hash,
		Address:      in.Address,
		Role:         role,
		Status:       StatusActive,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}

	zctx.From(ctx).Info("User registered",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// ChangeStatus blocks or unblocks an account.
func (s *Service) ChangeStatus(ctx context.Context, id string, status Status) (*User, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.users.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	zctx.From(ctx).Info("User status changed",
		zap.String("user_id", id),
		zap.String("status", string(status)),
	)
	return s.users.GetByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
