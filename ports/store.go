package ports

import (
	"context"
	"time"

	"github.com/agoradao/janus/core"
)

// NonceStore hands out single-use login nonces and consumes them.
type NonceStore interface {
	// Allocate stores a fresh cryptographically random nonce with a TTL
	// and returns it. A value collision is an allocation failure to retry,
	// never a silent overwrite.
	Allocate(ctx context.Context) (value string, expiresAt time.Time, err error)

	// Consume checks that the nonce exists and deletes it, as atomically as
	// the backing store allows. It returns false for unknown or expired
	// values.
	Consume(ctx context.Context, value string) (bool, error)
}

// SessionStore persists session records with a TTL.
type SessionStore interface {
	// Create writes a new session for the address/chain pair and returns it.
	Create(ctx context.Context, address string, chainID uint64) (*core.Session, error)

	// Get returns the live session or core.ErrSessionNotFound. Missing and
	// TTL-expired records are indistinguishable to the caller.
	Get(ctx context.Context, id string) (*core.Session, error)

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
}

// Pinger reports whether a store's backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
