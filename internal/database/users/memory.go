package users

import (
	"context"
	"sync"
	"time"

	"github.com/lifehub/authapi/internal/entities"
)

// MemoryStore keeps users in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users []*entities.User
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	email = NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if u := s.lookup(email); u != nil {
		clone := *u
		return &clone, nil
	}
	return nil, ErrNotFound
}

// Create registers a user with the next id. The uniqueness check runs under
// the same lock as the insert, so concurrent callers cannot both succeed.
func (s *MemoryStore) Create(_ context.Context, email, passwordHash string, role entities.Role) (*entities.User, error) {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(email) != nil {
		return nil, ErrEmailTaken
	}

	user := &entities.User{
		ID:           uint64(len(s.users)) + 1,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         normalizeRole(role),
		CreatedAt:    s.now(),
	}
	s.users = append(s.users, user)

	clone := *user
	return &clone, nil
}

func (s *MemoryStore) ListSafe(_ context.Context) ([]entities.SafeUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.SafeUser, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Safe())
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(email string) *entities.User {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}
