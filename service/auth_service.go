package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agoradao/janus/core"
	"github.com/agoradao/janus/internal/eth"
	"github.com/agoradao/janus/ports"
	"github.com/agoradao/janus/siwe"
)

// Config carries the identity this service puts into every challenge
// message: the domain requesting the signature, the URI the signature
// applies to, and the set of chains accounts may sign in from.
type Config struct {
	Domain    string
	URI       string
	Statement string
	ChainIDs  []uint64
	Resources []string
}

// AuthService orchestrates the sign-in lifecycle: challenge issuance,
// signature verification, session creation, and revocation. It holds no
// per-request state; everything durable lives behind the store ports.
type AuthService struct {
	cfg       Config
	nonces    ports.NonceStore
	sessions  ports.SessionStore
	tokenizer ports.Tokenizer
	verifier  ports.SignatureVerifier
	events    ports.EventPublisher
	logger    zerolog.Logger

	now func() time.Time
}

// NewAuthService creates the service. events may be nil when no broker is
// configured; lifecycle events are then skipped.
func NewAuthService(
	cfg Config,
	nonces ports.NonceStore,
	sessions ports.SessionStore,
	tokenizer ports.Tokenizer,
	verifier ports.SignatureVerifier,
	events ports.EventPublisher,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		cfg:       cfg,
		nonces:    nonces,
		sessions:  sessions,
		tokenizer: tokenizer,
		verifier:  verifier,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateChallenge allocates a single-use nonce and renders the canonical
// message for the wallet to sign. The returned ExpiresAt is the nonce's
// deadline: the message text itself stays verifiable for longer, but the
// challenge must be submitted before the nonce expires.
func (s *AuthService) CreateChallenge(ctx context.Context, address string, chainID uint64) (*core.Challenge, error) {
	checksummed, err := eth.ChecksumAddress(address)
	if err != nil {
		return nil, core.ErrInvalidAddress
	}
	if !s.chainAllowed(chainID) {
		return nil, core.ErrInvalidChain
	}

	nonce, nonceExpiry, err := s.nonces.Allocate(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("nonce allocation failed")
		return nil, core.ErrConfiguration
	}

	now := s.now()
	msg := siwe.Message{
		Domain:         s.cfg.Domain,
		Address:        checksummed,
		Statement:      s.cfg.Statement,
		URI:            s.cfg.URI,
		Version:        siwe.Version,
		ChainID:        chainID,
		Nonce:          nonce,
		IssuedAt:       now,
		ExpirationTime: now.Add(core.MessageTTL),
		Resources:      s.cfg.Resources,
	}

	return &core.Challenge{
		Nonce:     nonce,
		Address:   checksummed,
		ChainID:   chainID,
		Message:   msg.Render(),
		IssuedAt:  now,
		ExpiresAt: nonceExpiry,
	}, nil
}

// Login validates a signed challenge and establishes a session.
//
// The order of checks is fixed: input shape, nonce consumption, nonce
// presence in the message, message cross-checks, then the signature
// itself. Consuming the nonce first means any later failure still burns
// it; the caller restarts from a fresh challenge rather than retrying.
func (s *AuthService) Login(ctx context.Context, messageText, signature, nonce, address string, chainID uint64) (*core.Session, string, error) {
	if messageText == "" || signature == "" || nonce == "" || address == "" || chainID == 0 {
		return nil, "", core.ErrBadRequest
	}
	checksummed, err := eth.ChecksumAddress(address)
	if err != nil {
		return nil, "", core.ErrBadRequest
	}
	if !s.chainAllowed(chainID) {
		return nil, "", core.ErrBadRequest
	}

	consumed, err := s.nonces.Consume(ctx, nonce)
	if err != nil {
		s.logger.Error().Err(err).Msg("nonce consume failed")
		return nil, "", core.ErrConfiguration
	}
	if !consumed {
		return nil, "", core.ErrInvalidNonce
	}

	// The submitted nonce must appear verbatim in the signed text, or the
	// caller is signing one challenge while redeeming another.
	if !strings.Contains(messageText, nonce) {
		return nil, "", core.ErrNonceMismatch
	}

	parsed, err := siwe.Parse(messageText)
	if err != nil {
		return nil, "", core.ErrBadRequest
	}
	if parsed.Nonce != nonce {
		return nil, "", core.ErrNonceMismatch
	}
	if parsed.Domain != s.cfg.Domain ||
		!strings.EqualFold(parsed.Address, checksummed) ||
		parsed.ChainID != chainID {
		return nil, "", core.ErrVerificationFailed
	}
	if !parsed.ExpirationTime.IsZero() && s.now().After(parsed.ExpirationTime) {
		return nil, "", core.ErrVerificationFailed
	}

	// Verify over the literal submitted bytes. Never re-render the parsed
	// message here: the wallet signed messageText, not our serialization.
	if !s.verifier.Verify([]byte(messageText), signature, checksummed) {
		return nil, "", core.ErrVerificationFailed
	}

	session, err := s.sessions.Create(ctx, checksummed, chainID)
	if err != nil {
		s.logger.Error().Err(err).Msg("session creation failed")
		return nil, "", core.ErrConfiguration
	}
	token, err := s.tokenizer.Issue(session)
	if err != nil {
		s.logger.Error().Err(err).Msg("token issuance failed")
		return nil, "", core.ErrConfiguration
	}

	if s.events != nil {
		if err := s.events.PublishLogin(ctx, session); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("login event publish failed")
		}
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("address", session.Address).
		Uint64("chain_id", session.ChainID).
		Msg("session established")

	return session, token, nil
}

// Session resolves a bearer token to its live session. Token validation is
// stateless; the store lookup afterwards is what notices revocation.
func (s *AuthService) Session(ctx context.Context, token string) (*core.Session, error) {
	payload, err := s.tokenizer.Validate(token)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, payload.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, core.ErrSessionNotFound
		}
		s.logger.Error().Err(err).Msg("session lookup failed")
		return nil, core.ErrConfiguration
	}
	return session, nil
}

// Logout revokes the session referenced by the token. Revoking an already
// revoked session succeeds; only an unusable token is an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	payload, err := s.tokenizer.Validate(token)
	if err != nil {
		return core.ErrInvalidToken
	}

	if err := s.sessions.Delete(ctx, payload.SessionID); err != nil {
		s.logger.Error().Err(err).Msg("session delete failed")
		return core.ErrConfiguration
	}

	if s.events != nil {
		if err := s.events.PublishLogout(ctx, payload.Address, payload.SessionID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", payload.SessionID).Msg("logout event publish failed")
		}
	}

	s.logger.Info().
		Str("session_id", payload.SessionID).
		Str("address", payload.Address).
		Msg("session revoked")

	return nil
}

func (s *AuthService) chainAllowed(chainID uint64) bool {
	for _, id := range s.cfg.ChainIDs {
		if id == chainID {
			return true
		}
	}
	return false
}
