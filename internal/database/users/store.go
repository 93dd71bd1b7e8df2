// Package users holds the credential store: the registry of accounts known
// to this process.
//
// # Usage
//
//	store := users.NewMemoryStore()
//	user, err := store.Create(ctx, "a@b.com", hash, entities.RoleUser)
//	found, err := store.FindByEmail(ctx, "A@B.com")
package users

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lifehub/authapi/internal/entities"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Store is the credential registry used by the auth flow. Implementations
// must make the uniqueness check and id assignment in Create atomic.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	Create(ctx context.Context, email, passwordHash string, role entities.Role) (*entities.User, error)
	ListSafe(ctx context.Context) ([]entities.SafeUser, error)
	Count(ctx context.Context) (int, error)
}

// NormalizeEmail returns the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	// Casers are stateful, so one is built per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

func normalizeRole(role entities.Role) entities.Role {
	if role == entities.RoleAdmin {
		return entities.RoleAdmin
	}
	return entities.RoleUser
}
