package users

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/lifehub/authapi/internal/entities"
)

// Repository is a Store backed by GORM.
type Repository struct {
	db *gorm.DB
	// writeMu serializes Create so the count-based id and the uniqueness
	// check see a consistent table.
	writeMu sync.Mutex
}

var _ Store = (*Repository)(nil)

// NewRepository creates a users repository. The users table must already
// be migrated (see database.NewDatabase).
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *Repository) Create(ctx context.Context, email, passwordHash string, role entities.Role) (*entities.User, error) {
	email = NormalizeEmail(email)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	var user *entities.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&entities.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing > 0 {
			return ErrEmailTaken
		}

		var total int64
		if err := tx.Model(&entities.User{}).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}

		user = &entities.User{
			ID:           uint64(total) + 1,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         normalizeRole(role),
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) ListSafe(ctx context.Context) ([]entities.SafeUser, error) {
	out := make([]entities.SafeUser, 0)
	err := r.db.WithContext(ctx).
		Model(&entities.User{}).
		Select("id", "email", "role").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return int(count), nil
}
