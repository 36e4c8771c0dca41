package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/uptrace/bun"

	"github.com/agoradao/janus/core"
)

// BunStore implements ports.NonceStore and ports.SessionStore on a SQL
// database through bun. It is the single-node alternative to Redis: useful
// where the deployment has no shared KV but can mount a SQLite file.
//
// SQL has no native TTL, so expiry is carried on an expires_at column and
// enforced on every read; expired rows are purged opportunistically inside
// calls, never by a background job.
type BunStore struct {
	db         *bun.DB
	nonceTTL   time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

type nonceRow struct {
	bun.BaseModel `bun:"table:nonces"`

	Value     string    `bun:",pk"`
	CreatedAt time.Time `bun:",notnull"`
	ExpiresAt time.Time `bun:",notnull"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions"`

	ID        string    `bun:",pk"`
	Address   string    `bun:",notnull"`
	ChainID   uint64    `bun:",notnull"`
	IssuedAt  time.Time `bun:",notnull"`
	ExpiresAt time.Time `bun:",notnull"`
}

// NewBunStore creates the store and its tables. Zero TTLs select the core
// defaults.
func NewBunStore(ctx context.Context, db *bun.DB, nonceTTL, sessionTTL time.Duration) (*BunStore, error) {
	if nonceTTL <= 0 {
		nonceTTL = core.NonceTTL
	}
	if sessionTTL <= 0 {
		sessionTTL = core.SessionTTL
	}
	s := &BunStore{
		db:         db,
		nonceTTL:   nonceTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
	for _, model := range []any{(*nonceRow)(nil), (*sessionRow)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return nil, fmt.Errorf("creating store tables: %w", err)
		}
	}
	return s, nil
}

// Allocate inserts a fresh nonce row. INSERT ... ON CONFLICT DO NOTHING
// turns a value collision into a retry instead of an overwrite.
//
// Timestamps are stored in UTC so that SQLite's string comparison of
// datetime values orders them correctly.
func (s *BunStore) Allocate(ctx context.Context) (string, time.Time, error) {
	now := s.now().UTC()
	if _, err := s.db.NewDelete().
		Model((*nonceRow)(nil)).
		Where("expires_at <= ?", now).
		Exec(ctx); err != nil {
		return "", time.Time{}, fmt.Errorf("purging expired nonces: %w", err)
	}

	for attempt := 0; attempt < allocateAttempts; attempt++ {
		value, err := newNonceValue()
		if err != nil {
			return "", time.Time{}, err
		}
		row := &nonceRow{Value: value, CreatedAt: now, ExpiresAt: now.Add(s.nonceTTL)}
		res, err := s.db.NewInsert().Model(row).Ignore().Exec(ctx)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("storing nonce: %w", err)
		}
		if inserted, _ := res.RowsAffected(); inserted > 0 {
			return value, row.ExpiresAt, nil
		}
	}
	return "", time.Time{}, errAllocationFailed
}

// Consume deletes the nonce row iff it is still unexpired. The conditional
// DELETE is a single statement, so check-and-delete is atomic here.
func (s *BunStore) Consume(ctx context.Context, value string) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*nonceRow)(nil)).
		Where("value = ? AND expires_at > ?", value, s.now().UTC()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("consuming nonce: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consuming nonce: %w", err)
	}
	return deleted > 0, nil
}

// Create writes a new session row.
func (s *BunStore) Create(ctx context.Context, address string, chainID uint64) (*core.Session, error) {
	now := s.now().UTC()
	session := &core.Session{
		ID:        uuid.NewString(),
		Address:   address,
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	row := new(sessionRow)
	if err := copier.Copy(row, session); err != nil {
		return nil, fmt.Errorf("mapping session: %w", err)
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return session, nil
}

// Get returns the session or core.ErrSessionNotFound; an expired row is
// dropped and reported identically to a missing one.
func (s *BunStore) Get(ctx context.Context, id string) (*core.Session, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if !s.now().Before(row.ExpiresAt) {
		if _, err := s.db.NewDelete().Model(row).WherePK().Exec(ctx); err != nil {
			return nil, fmt.Errorf("purging expired session: %w", err)
		}
		return nil, core.ErrSessionNotFound
	}
	session := new(core.Session)
	if err := copier.Copy(session, row); err != nil {
		return nil, fmt.Errorf("mapping session: %w", err)
	}
	return session, nil
}

// Delete removes the session row; deleting an absent id is a no-op.
func (s *BunStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Ping reports database reachability.
func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
