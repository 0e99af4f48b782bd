package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Blacklist is the token revocation registry. Tokens are stored as full
// SHA-256 fingerprints of the raw credential string, so the registry never
// holds a usable token. Entries are only removed by Sweep.
type Blacklist struct {
	mu        sync.Mutex
	revokedAt map[string]time.Time
	now       func() time.Time
}

func NewBlacklist() *Blacklist {
	return &Blacklist{
		revokedAt: make(map[string]time.Time),
		now:       time.Now,
	}
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Record marks the exact token string as revoked. Recording the same token
// again keeps the original revocation time.
func (b *Blacklist) Record(token string) {
	fp := fingerprint(token)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.revokedAt[fp]; exists {
		return
	}
	b.revokedAt[fp] = b.now().UTC()
}

func (b *Blacklist) IsRevoked(token string) bool {
	fp := fingerprint(token)

	b.mu.Lock()
	defer b.mu.Unlock()

	_, revoked := b.revokedAt[fp]
	return revoked
}

// Sweep drops fingerprints recorded longer ago than maxAge. Once a token's
// own expiry is past there is nothing left to revoke, so maxAge should be at
// least the maximum credential lifetime. Returns the number of entries
// removed.
func (b *Blacklist) Sweep(maxAge time.Duration) int {
	cutoff := b.now().UTC().Add(-maxAge)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for fp, at := range b.revokedAt {
		if at.Before(cutoff) {
			delete(b.revokedAt, fp)
			removed++
		}
	}
	return removed
}

func (b *Blacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.revokedAt)
}
