package entities

import "time"

// Role is the single authorization flag carried by a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a requested role to a stored one. Only the exact string
// "admin" yields RoleAdmin; anything else is a regular user.
func ParseRole(requested string) Role {
	if requested == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// User is a registered account. Email is stored lower-cased.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Safe returns the projection of u that is allowed to leave the process.
func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
}

// SafeUser is a User without its password hash.
type SafeUser struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
