package core

import "errors"

// The authentication error taxonomy. Every failure that crosses the service
// boundary is one of these; raw store or crypto errors never escape.
var (
	ErrBadRequest         = errors.New("missing or malformed request fields")
	ErrInvalidAddress     = errors.New("invalid ethereum address")
	ErrInvalidChain       = errors.New("unsupported chain id")
	ErrInvalidNonce       = errors.New("invalid or expired nonce")
	ErrNonceMismatch      = errors.New("nonce not present in signed message")
	ErrVerificationFailed = errors.New("signature verification failed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrSessionNotFound    = errors.New("session not found")
	ErrConfiguration      = errors.New("authentication backend unavailable")
)
