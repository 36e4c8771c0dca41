package tokenizer

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agoradao/janus/core"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testSession(now time.Time) *core.Session {
	return &core.Session{
		ID:        "b5f9a6de-0db8-4f62-a7a4-1f2c24b78e6e",
		Address:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		ChainID:   11155111,
		IssuedAt:  now,
		ExpiresAt: now.Add(core.SessionTTL),
	}
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Now()
	tok := NewJWTTokenizer(testSecret, nil, 0)
	tok.now = func() time.Time { return now }

	session := testSession(now)
	token, err := tok.Issue(session)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "token must have header, payload and signature parts")

	payload, err := tok.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, session.Address, payload.Address)
	assert.Equal(t, session.ID, payload.SessionID)
	assert.Equal(t, session.ChainID, payload.ChainID)
	assert.WithinDuration(t, now, payload.IssuedAt, time.Second)
	assert.WithinDuration(t, session.ExpiresAt, payload.ExpiresAt, time.Second)
}

func TestValidateExpired(t *testing.T) {
	now := time.Now()
	tok := NewJWTTokenizer(testSecret, nil, time.Hour)
	tok.now = func() time.Time { return now }

	token, err := tok.Issue(testSession(now))
	require.NoError(t, err)

	tok.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = tok.Validate(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
	assert.NotErrorIs(t, err, core.ErrInvalidToken, "expired must be distinguishable from invalid")
}

func TestValidateTampered(t *testing.T) {
	tok := NewJWTTokenizer(testSecret, nil, 0)

	token, err := tok.Issue(testSession(time.Now()))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	mutated := []byte(parts[1])
	if mutated[0] == 'A' {
		mutated[0] = 'B'
	} else {
		mutated[0] = 'A'
	}
	tampered := parts[0] + "." + string(mutated) + "." + parts[2]

	_, err = tok.Validate(tampered)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestValidateWrongSecret(t *testing.T) {
	tok := NewJWTTokenizer(testSecret, nil, 0)
	other := NewJWTTokenizer([]byte("ffffffffffffffffffffffffffffffff"), nil, 0)

	token, err := tok.Issue(testSession(time.Now()))
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestValidateGarbage(t *testing.T) {
	tok := NewJWTTokenizer(testSecret, nil, 0)

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d", "....."} {
		_, err := tok.Validate(token)
		assert.ErrorIs(t, err, core.ErrInvalidToken, "token %q", token)
	}
}

func TestSecretRotation(t *testing.T) {
	oldSecret := []byte("oldoldoldoldoldoldoldoldoldold32")
	newSecret := []byte("newnewnewnewnewnewnewnewnewnew32")

	issued, err := NewJWTTokenizer(oldSecret, nil, 0).Issue(testSession(time.Now()))
	require.NoError(t, err)

	rotated := NewJWTTokenizer(newSecret, oldSecret, 0)
	payload, err := rotated.Validate(issued)
	require.NoError(t, err, "token signed with the previous secret must stay valid")
	assert.Equal(t, "b5f9a6de-0db8-4f62-a7a4-1f2c24b78e6e", payload.SessionID)

	unrelated := NewJWTTokenizer(newSecret, []byte("thirdthirdthirdthirdthirdthird32"), 0)
	_, err = unrelated.Validate(issued)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestIssueClampsToSessionExpiry(t *testing.T) {
	now := time.Now()
	tok := NewJWTTokenizer(testSecret, nil, core.SessionTTL)
	tok.now = func() time.Time { return now }

	session := testSession(now)
	session.ExpiresAt = now.Add(time.Minute)

	token, err := tok.Issue(session)
	require.NoError(t, err)

	payload, err := tok.Validate(token)
	require.NoError(t, err)
	assert.WithinDuration(t, session.ExpiresAt, payload.ExpiresAt, time.Second,
		"token must not outlive its session")
}

func TestValidateWrongAudience(t *testing.T) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{"session:refresh"},
		},
		SessionID: "sid-1",
		ChainID:   1,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = NewJWTTokenizer(testSecret, nil, 0).Validate(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestValidateRejectsUnsignedAlgorithm(t *testing.T) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		SessionID: "sid-1",
		ChainID:   1,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTTokenizer(testSecret, nil, 0).Validate(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestValidateMissingSessionClaim(t *testing.T) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		Audience:  jwt.ClaimStrings{AudienceSession},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = NewJWTTokenizer(testSecret, nil, 0).Validate(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken, "token without a session id must be rejected")
}
