package core

import "time"

const (
	// NonceTTL bounds how long an unconsumed challenge nonce stays valid.
	// It is deliberately short: a nonce only needs to survive one
	// challenge/sign/submit round trip.
	NonceTTL = 10 * time.Minute

	// SessionTTL is the lifetime of a session created by a successful login.
	SessionTTL = 24 * time.Hour

	// MessageTTL is the validity window written into the challenge message
	// itself. It is longer than NonceTTL on purpose: the nonce expires fast
	// to limit replay, while the message expiry matches the session the
	// signature will establish.
	MessageTTL = 24 * time.Hour

	// RefreshThreshold is the remaining session lifetime below which clients
	// are expected to start a fresh challenge/login round trip. There is no
	// in-place extension; refreshing is re-authentication.
	RefreshThreshold = time.Hour
)

// Challenge is a pending login challenge: a single-use nonce plus the
// canonical message text the wallet signs.
type Challenge struct {
	Nonce     string    // single-use random value, embedded verbatim in Message
	Address   string    // checksummed account the challenge was issued for
	ChainID   uint64    // chain the login is bound to
	Message   string    // canonical sign-in text, signed byte-for-byte
	IssuedAt  time.Time // when the challenge was created
	ExpiresAt time.Time // when the nonce stops being consumable
}

// Session is an authenticated login. Address and ChainID are immutable for
// the life of the session; an account or network switch means a new login,
// never a mutation.
type Session struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	ChainID   uint64    `json:"chain_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NeedsRefresh reports whether the session is close enough to expiry that
// the client should re-authenticate.
func (s *Session) NeedsRefresh(now time.Time) bool {
	return s.ExpiresAt.Sub(now) < RefreshThreshold
}

// TokenPayload is the decoded claim set of a bearer token. It references a
// session by id; whether that session is still live is the session store's
// verdict, not the token's.
type TokenPayload struct {
	Address   string
	SessionID string
	ChainID   uint64
	IssuedAt  time.Time
	ExpiresAt time.Time
}
