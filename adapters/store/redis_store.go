package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agoradao/janus/core"
)

const (
	noncePrefix   = "nonce:"
	sessionPrefix = "session:"
)

// RedisStore implements ports.NonceStore and ports.SessionStore on a shared
// Redis client. Keys are namespaced (`nonce:<value>`, `session:<id>`) and
// written with native TTLs.
//
// Nonce consumption uses GETDEL, so check-and-delete is atomic on a single
// primary. Against a multi-region, eventually-consistent deployment a narrow
// replay window remains while the delete propagates; that window is an
// accepted limitation of the backing store, not something this adapter can
// mask.
type RedisStore struct {
	client     *redis.Client
	nonceTTL   time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

// NewRedisStore creates a store on an existing client. Zero TTLs select the
// core defaults.
func NewRedisStore(client *redis.Client, nonceTTL, sessionTTL time.Duration) *RedisStore {
	if nonceTTL <= 0 {
		nonceTTL = core.NonceTTL
	}
	if sessionTTL <= 0 {
		sessionTTL = core.SessionTTL
	}
	return &RedisStore{
		client:     client,
		nonceTTL:   nonceTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Allocate stores a fresh nonce under `nonce:<value>` with the nonce TTL.
// SET NX refuses to overwrite an outstanding value, so a collision retries
// instead of clobbering.
func (s *RedisStore) Allocate(ctx context.Context) (string, time.Time, error) {
	for attempt := 0; attempt < allocateAttempts; attempt++ {
		value, err := newNonceValue()
		if err != nil {
			return "", time.Time{}, err
		}
		ok, err := s.client.SetNX(ctx, noncePrefix+value, "1", s.nonceTTL).Result()
		if err != nil {
			return "", time.Time{}, fmt.Errorf("storing nonce: %w", err)
		}
		if ok {
			return value, s.now().Add(s.nonceTTL), nil
		}
	}
	return "", time.Time{}, errAllocationFailed
}

// Consume deletes the nonce and reports whether it existed, in one atomic
// GETDEL round trip.
func (s *RedisStore) Consume(ctx context.Context, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	_, err := s.client.GetDel(ctx, noncePrefix+value).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consuming nonce: %w", err)
	}
	return true, nil
}

// Create writes a new session record under `session:<id>` with the session
// TTL.
func (s *RedisStore) Create(ctx context.Context, address string, chainID uint64) (*core.Session, error) {
	now := s.now()
	session := &core.Session{
		ID:        uuid.NewString(),
		Address:   address,
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := s.client.Set(ctx, sessionPrefix+session.ID, raw, s.sessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return session, nil
}

// Get returns the session or core.ErrSessionNotFound. TTL eviction is
// advisory; the expiry timestamp on the record is checked here as the
// authoritative layer.
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Session, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var session core.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, core.ErrSessionNotFound
	}
	return &session, nil
}

// Delete removes the session. Redis DEL on a missing key is a no-op, which
// gives idempotency for free.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Ping reports backend reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
