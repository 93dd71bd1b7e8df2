package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost      int
	minLength int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher creates a hasher. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost; minLength <= 0 disables the length floor.
func NewHasher(cost, minLength int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost, minLength: minLength}
}

// MinLength returns the configured minimum password length.
func (h *Hasher) MinLength() int {
	return h.minLength
}

// Hash creates a salted bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if h.minLength > 0 && len(password) < h.minLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares a password with its hash.
func (h *Hasher) Verify(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}

// Equalize burns the same bcrypt work as Verify against a throwaway hash.
// Login calls it for unknown emails so that both failure paths take as long.
func (h *Hasher) Equalize(password string) {
	h.dummyOnce.Do(func() {
		// A hash generation failure leaves dummyHash nil; the compare below
		// then fails fast, which only weakens the timing guarantee.
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("equalize-unknown-account"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

// GenerateSecret creates a random 32-byte hex secret suitable for JWT_SECRET.
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
