package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with session-specific ones.
// Subject carries the wallet address; sid and cid tie the token to a
// stored session and the chain it was established on.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	ChainID   uint64 `json:"cid"`
}
