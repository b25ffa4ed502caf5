package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/user"
)

// Users is the account storage the authenticator needs.
type Users interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
}

// TokenPair is returned by Login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service logs users in and verifies their tokens.
type Service struct {
	users   Users
	access  *Tokens
	refresh *Tokens
	cost    int
	now     func() time.Time
}

// NewService creates an authenticator. access and refresh must use
// different secrets.
func NewService(users Users, access, refresh *Tokens, bcryptCost int) *Service {
	return &Service{
		users:   users,
		access:  access,
		refresh: refresh,
		cost:    bcryptCost,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Login checks the credentials and issues an access and a refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	lg := zctx.From(ctx)

	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if err := checkActive(u); err != nil {
		lg.Info("Login rejected", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	if !user.CheckPassword(u.PasswordHash, password) {
		lg.Info("Login rejected", zap.String("user_id", u.ID), zap.Error(ErrPasswordMismatch))
		return nil, ErrPasswordMismatch
	}

	access, err := s.access.Issue(u.ID, u.Role)
	if err != nil {
		return nil, errors.Wrap(err, "access token")
	}
	refresh, err := s.refresh.Issue(u.ID, u.Role)
	if err != nil {
		return nil, errors.Wrap(err, "refresh token")
	}

	lg.Info("Login succeeded", zap.String("user_id", u.ID))
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh issues a new access token for a valid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.refresh.Parse(stripBearer(refreshToken))
	if err != nil {
		return "", err
	}
	u, err := s.verifiedUser(ctx, claims)
	if err != nil {
		return "", err
	}
	token, err := s.access.Issue(u.ID, u.Role)
	if err != nil {
		return "", errors.Wrap(err, "access token")
	}
	return token, nil
}

// ChangePassword replaces the password after checking the old one. Tokens
// issued before the change stop being accepted.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(u.PasswordHash, oldPassword) {
		return ErrPasswordMismatch
	}
	hash, err := user.HashPassword(newPassword, s.cost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, s.now()); err != nil {
		return errors.Wrap(err, "update password")
	}

	zctx.From(ctx).Info("Password changed", zap.String("user_id", u.ID))
	return nil
}

// Authenticate verifies an access token given as "Bearer <token>" or as the
// raw token, and returns its claims when the account may still use it.
func (s *Service) Authenticate(ctx context.Context, header string) (*Claims, error) {
	raw := stripBearer(header)
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims, err := s.access.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.verifiedUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	// Role may have changed since the token was issued.
	claims.Role = u.Role
	return claims, nil
}

// verifiedUser loads the token owner and checks it can still act.
func (s *Service) verifiedUser(ctx context.Context, claims *Claims) (*user.User, error) {
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, errors.Wrap(err, "load user")
	}
	if err := checkActive(u); err != nil {
		return nil, err
	}
	// Token timestamps have second precision.
	if u.PasswordChangedAt != nil && u.PasswordChangedAt.Unix() > claims.IssuedAt.Unix() {
		return nil, ErrTokenRevoked
	}
	return u, nil
}

// Allow returns ErrRoleMismatch unless claims carry one of roles. No roles
// means any authenticated user.
func Allow(claims *Claims, roles ...user.Role) error {
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if claims.Role == r {
			return nil
		}
	}
	return ErrRoleMismatch
}

func checkActive(u *user.User) error {
	switch {
	case u.IsDeleted:
		return ErrUserDeleted
	case u.Status == user.StatusBlocked:
		return ErrUserBlocked
	default:
		return nil
	}
}

func stripBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
