package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/agoradao/janus/core"
)

func newTestBunStore(t *testing.T) *BunStore {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	s, err := NewBunStore(context.Background(), db, 0, 0)
	require.NoError(t, err)
	return s
}

func TestBunStoreNonceConsumeOnce(t *testing.T) {
	s := newTestBunStore(t)
	ctx := context.Background()

	value, expiresAt, err := s.Allocate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, value)
	assert.True(t, expiresAt.After(time.Now()))

	ok, err := s.Consume(ctx, value)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Consume(ctx, value)
	require.NoError(t, err)
	assert.False(t, ok, "second consume of the same nonce must fail")
}

func TestBunStoreNonceExpiry(t *testing.T) {
	s := newTestBunStore(t)
	ctx := context.Background()

	value, _, err := s.Allocate(ctx)
	require.NoError(t, err)

	base := time.Now()
	s.now = func() time.Time { return base.Add(s.nonceTTL + time.Minute) }

	ok, err := s.Consume(ctx, value)
	require.NoError(t, err)
	assert.False(t, ok, "expired nonce must not be consumable")
}

func TestBunStoreExpiredNoncesPurgedOnAllocate(t *testing.T) {
	s := newTestBunStore(t)
	ctx := context.Background()

	stale, _, err := s.Allocate(ctx)
	require.NoError(t, err)

	base := time.Now()
	s.now = func() time.Time { return base.Add(s.nonceTTL + time.Minute) }

	_, _, err = s.Allocate(ctx)
	require.NoError(t, err)

	count, err := s.db.NewSelect().
		Model((*nonceRow)(nil)).
		Where("value = ?", stale).
		Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "expired nonce rows should be purged")
}

func TestBunStoreSessionRoundTrip(t *testing.T) {
	s := newTestBunStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "0x8ba1f109551bD432803012645Ac136ddd64DBA72", 11155111)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Address, got.Address)
	assert.Equal(t, created.ChainID, got.ChainID)
	assert.WithinDuration(t, created.IssuedAt, got.IssuedAt, time.Second)
	assert.WithinDuration(t, created.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestBunStoreSessionNotFound(t *testing.T) {
	s := newTestBunStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestBunStoreSessionExpiry(t *testing.T) {
	s := newTestBunStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "0x8ba1f109551bD432803012645Ac136ddd64DBA72", 1)
	require.NoError(t, err)

	s.now = func() time.Time { return created.ExpiresAt.Add(time.Second) }

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	count, err := s.db.NewSelect().
		Model((*sessionRow)(nil)).
		Where("id = ?", created.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "expired session row should be purged on read")
}

func TestBunStoreSessionDeleteIdempotent(t *testing.T) {
	s := newTestBunStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "0x8ba1f109551bD432803012645Ac136ddd64DBA72", 1)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	require.NoError(t, s.Delete(ctx, created.ID), "deleting an absent session must not error")
}
