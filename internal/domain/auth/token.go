package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/user"
)

// Claims is the identity carried by a verified token.
type Claims struct {
	UserID   string
	Role     user.Role
	IssuedAt time.Time
}

type tokenClaims struct {
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with one secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer. An empty secret is rejected.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("invalid token ttl %s", ttl)
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for the user.
func (t *Tokens) Issue(userID string, role user.Role) (string, error) {
	now := t.now()
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return s, nil
}

// Parse verifies the signature and expiry of raw.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return &Claims{
		UserID:   claims.Subject,
		Role:     claims.Role,
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}
