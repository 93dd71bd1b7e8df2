package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lifehub/authapi/internal/database/users"
	"github.com/lifehub/authapi/internal/entities"
	"github.com/lifehub/authapi/internal/metrics"
)

// Session is the result of a successful register or login.
type Session struct {
	User   *entities.User
	Token  string
	Claims *Claims
}

// Service orchestrates the credential store, the hasher and the token manager.
type Service struct {
	store   users.Store
	hasher  *Hasher
	tokens  *TokenManager
	metrics *metrics.Metrics
	log     *zap.Logger
}

type ServiceOption func(*Service)

func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithServiceLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates a new authentication service.
func NewService(store users.Store, hasher *Hasher, tokens *TokenManager, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user and opens a session for it. role is honoured only
// when it is exactly "admin".
func (s *Service) Register(ctx context.Context, email, password, role string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	email = users.NormalizeEmail(email)

	_, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordTooLong) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// The store re-checks uniqueness atomically; another registration for
	// the same email may have landed while the hash was computed.
	user, err := s.store.Create(ctx, email, passwordHash, entities.ParseRole(role))
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.metrics.UserRegistered()
	s.log.Info("User registered", zap.Uint64("user_id", user.ID), zap.String("role", string(user.Role)))

	return s.openSession(user)
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials after comparable bcrypt work.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.hasher.Equalize(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.hasher.Verify(password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrInvalidPassword) {
			s.log.Error("Password verification failed", zap.Uint64("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	return s.openSession(user)
}

// ListUsers returns every user without password hashes.
func (s *Service) ListUsers(ctx context.Context) ([]entities.SafeUser, error) {
	list, err := s.store.ListSafe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return list, nil
}

// CountUsers returns the number of registered users.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) openSession(user *entities.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{User: user, Token: token, Claims: claims}, nil
}
