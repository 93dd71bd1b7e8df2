package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lifehub/authapi/internal/entities"
)

// MinSecretLength is the shortest accepted HMAC signing secret in bytes.
const MinSecretLength = 32

var errSecretTooShort = errors.New("signing secret must be at least 32 bytes")

// Claims are the identity fields carried by a session token.
type Claims struct {
	ID    uint64        `json:"id"`
	Email string        `json:"email"`
	Role  entities.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

type TokenOption func(*TokenManager)

// WithClock replaces time.Now, for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

// NewTokenManager creates a token manager. The secret must be supplied by the
// operator; there is no fallback.
func NewTokenManager(secret []byte, lifetime time.Duration, issuer string, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) < MinSecretLength {
		return nil, errSecretTooShort
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}

	m := &TokenManager{
		secret:   secret,
		lifetime: lifetime,
		issuer:   issuer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Remaining returns how long claims stay valid by the manager's clock.
// It is zero for expired claims or claims without an expiry.
func (m *TokenManager) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	if left := claims.ExpiresAt.Sub(m.now()); left > 0 {
		return left
	}
	return 0
}

// Issue signs a token for the given identity.
func (m *TokenManager) Issue(id uint64, email string, role entities.Role) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		ID:    id,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks the signature, algorithm, issuer and expiry of a token.
// Every failure is reported as ErrInvalidToken.
func (m *TokenManager) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
