package ports

import "github.com/agoradao/janus/core"

// Tokenizer mints and validates the bearer tokens that reference sessions.
type Tokenizer interface {
	// Issue signs a token for the session. The token's expiry never
	// exceeds the session's.
	Issue(session *core.Session) (string, error)

	// Validate checks signature and expiry and returns the decoded payload.
	// Expiry and signature failures are distinct: core.ErrTokenExpired vs
	// core.ErrInvalidToken. Validate never consults the session store;
	// callers needing liveness follow up with SessionStore.Get.
	Validate(token string) (*core.TokenPayload, error)
}
