package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agoradao/janus/core"
)

const AudienceSession = "session:access"

// JWTTokenizer implements the Tokenizer interface using HMAC-SHA256 JWTs.
// Tokens are stateless: everything needed to evaluate one is in its claims
// and the signing secret, no store lookup required.
//
// A previous secret may be configured to allow zero-downtime key rotation:
// new tokens are always signed with the current secret, but validation
// falls back to the previous one when the current rejects the signature.
type JWTTokenizer struct {
	secret   []byte
	previous []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewJWTTokenizer creates a tokenizer signing with secret. previous may be
// nil. A zero tokenTTL falls back to the session lifetime.
func NewJWTTokenizer(secret, previous []byte, tokenTTL time.Duration) *JWTTokenizer {
	if tokenTTL == 0 {
		tokenTTL = core.SessionTTL
	}
	return &JWTTokenizer{
		secret:   secret,
		previous: previous,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Issue signs a bearer token for the session. The token never outlives the
// session: its expiry is clamped to the session's.
func (j *JWTTokenizer) Issue(session *core.Session) (string, error) {
	now := j.now()
	expiresAt := now.Add(j.tokenTTL)
	if expiresAt.After(session.ExpiresAt) {
		expiresAt = session.ExpiresAt
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		SessionID: session.ID,
		ChainID:   session.ChainID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Validate checks signature, expiry and audience, and returns the payload
// carried by the token. Expired tokens surface as core.ErrTokenExpired,
// anything else that fails as core.ErrInvalidToken.
func (j *JWTTokenizer) Validate(tokenStr string) (*core.TokenPayload, error) {
	claims, err := j.parse(tokenStr, j.secret)
	if err != nil && j.previous != nil && errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		claims, err = j.parse(tokenStr, j.previous)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrInvalidToken
	}

	return &core.TokenPayload{
		Address:   claims.Subject,
		SessionID: claims.SessionID,
		ChainID:   claims.ChainID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (j *JWTTokenizer) parse(tokenStr string, key []byte) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithExpirationRequired(), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}
	if claims.SessionID == "" || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, core.ErrInvalidToken
	}

	return claims, nil
}
