// Package revocation tracks token ids that were invalidated before their
// natural expiry. Entries are only needed until the token itself expires.
package revocation

import (
	"context"
	"time"
)

type Entry struct {
	TokenID   string
	RevokedAt time.Time
	ExpiresAt time.Time
}

type Registry interface {
	Contains(ctx context.Context, tokenID string) (bool, error)
	// Add inserts e unless a live entry for the same token id exists.
	// added reports whether this call created the entry.
	Add(ctx context.Context, e Entry) (added bool, err error)
	// Sweep drops entries whose ExpiresAt <= now and returns how many went.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
