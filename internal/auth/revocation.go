package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Denylist records token ids revoked at logout until the tokens would have
// expired anyway. Expired entries are never reported as revoked; Purge
// reclaims their memory.
type Denylist struct {
	entries *gocache.Cache
}

// NewDenylist creates an empty denylist without a background janitor.
func NewDenylist() *Denylist {
	return &Denylist{entries: gocache.New(gocache.NoExpiration, 0)}
}

// Revoke denylists tokenID for ttl, the token's remaining validity. A
// non-positive ttl is ignored.
func (d *Denylist) Revoke(tokenID string, ttl time.Duration) {
	if d == nil || tokenID == "" || ttl <= 0 {
		return
	}
	d.entries.Set(tokenID, struct{}{}, ttl)
}

func (d *Denylist) IsRevoked(tokenID string) bool {
	if d == nil || tokenID == "" {
		return false
	}
	_, found := d.entries.Get(tokenID)
	return found
}

// Purge drops expired entries.
func (d *Denylist) Purge() {
	if d == nil {
		return
	}
	d.entries.DeleteExpired()
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (d *Denylist) Len() int {
	if d == nil {
		return 0
	}
	return d.entries.ItemCount()
}
