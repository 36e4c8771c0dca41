package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agoradao/janus/core"
)

// MemoryStore is an in-process implementation of ports.NonceStore and
// ports.SessionStore for tests and single-node development runs. Expired
// entries are swept opportunistically inside calls; there is no background
// goroutine.
type MemoryStore struct {
	mu         sync.Mutex
	nonces     map[string]time.Time
	sessions   map[string]core.Session
	nonceTTL   time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

// NewMemoryStore creates an empty store. Zero TTLs select the core defaults.
func NewMemoryStore(nonceTTL, sessionTTL time.Duration) *MemoryStore {
	if nonceTTL <= 0 {
		nonceTTL = core.NonceTTL
	}
	if sessionTTL <= 0 {
		sessionTTL = core.SessionTTL
	}
	return &MemoryStore{
		nonces:     make(map[string]time.Time),
		sessions:   make(map[string]core.Session),
		nonceTTL:   nonceTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Allocate stores a fresh nonce with its expiry timestamp.
func (s *MemoryStore) Allocate(ctx context.Context) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	var value string
	for attempt := 0; ; attempt++ {
		v, err := newNonceValue()
		if err != nil {
			return "", time.Time{}, err
		}
		if _, exists := s.nonces[v]; !exists {
			value = v
			break
		}
		if attempt+1 >= allocateAttempts {
			return "", time.Time{}, errAllocationFailed
		}
	}

	expiresAt := s.now().Add(s.nonceTTL)
	s.nonces[value] = expiresAt
	return value, expiresAt, nil
}

// Consume deletes the nonce under the store lock and reports whether it was
// present and unexpired.
func (s *MemoryStore) Consume(ctx context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.nonces[value]
	if !ok {
		return false, nil
	}
	delete(s.nonces, value)
	if !s.now().Before(expiresAt) {
		return false, nil
	}
	return true, nil
}

// Create writes a new session record.
func (s *MemoryStore) Create(ctx context.Context, address string, chainID uint64) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := core.Session{
		ID:        uuid.NewString(),
		Address:   address,
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	s.sessions[session.ID] = session
	return &session, nil
}

// Get returns the session or core.ErrSessionNotFound; an expired record is
// dropped and reported identically to a missing one.
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, core.ErrSessionNotFound
	}
	return &session, nil
}

// Delete removes the session; deleting an absent id is a no-op.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Ping always succeeds: the backend is this process.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// sweepLocked drops expired entries. Caller holds mu.
func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for value, expiresAt := range s.nonces {
		if !now.Before(expiresAt) {
			delete(s.nonces, value)
		}
	}
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
