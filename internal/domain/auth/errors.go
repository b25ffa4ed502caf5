package auth

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthorized groups failures to prove an identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden groups failures where the identity is known but not allowed.
	ErrForbidden = errors.New("forbidden")
)

var (
	ErrMissingToken     = fmt.Errorf("%w: token not found", ErrUnauthorized)
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenRevoked     = fmt.Errorf("%w: password changed after the token was issued", ErrUnauthorized)
	ErrUserDeleted      = fmt.Errorf("%w: user is deleted", ErrForbidden)
	ErrUserBlocked      = fmt.Errorf("%w: user is blocked", ErrForbidden)
	ErrPasswordMismatch = fmt.Errorf("%w: password did not match", ErrForbidden)
	ErrRoleMismatch     = fmt.Errorf("%w: role is not allowed", ErrForbidden)
)
