package config

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agoradao/janus/core"
)

const rawSecret = "a-sufficiently-long-signing-secret-for-tests"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"JANUS_CONFIG", "JANUS_SECRET", "JANUS_PREVIOUS_SECRET",
		"JANUS_ADDR", "JANUS_STORE", "JANUS_REDIS_URL", "JANUS_SQLITE_DSN",
		"JANUS_DOMAIN", "JANUS_URI", "JANUS_STATEMENT",
		"JANUS_CHAIN_IDS", "JANUS_RESOURCES",
		"JANUS_NONCE_TTL", "JANUS_SESSION_TTL", "JANUS_TOKEN_TTL",
		"JANUS_LOG_PRETTY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JANUS_SECRET")
}

func TestLoadRejectsShortSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JANUS_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JANUS_SECRET", rawSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, []uint64{1, 11155111}, cfg.ChainIDs)
	assert.Equal(t, core.NonceTTL, cfg.NonceTTL)
	assert.Equal(t, core.SessionTTL, cfg.SessionTTL)
	assert.Equal(t, []byte(rawSecret), cfg.Secret)
	assert.Nil(t, cfg.PreviousSecret)
}

func TestLoadBase64Secret(t *testing.T) {
	clearEnv(t)
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	t.Setenv("JANUS_SECRET", base64.StdEncoding.EncodeToString(raw))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, raw, cfg.Secret)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JANUS_SECRET", rawSecret)
	t.Setenv("JANUS_PREVIOUS_SECRET", rawSecret+"-previous")
	t.Setenv("JANUS_ADDR", ":8080")
	t.Setenv("JANUS_STORE", StoreMemory)
	t.Setenv("JANUS_DOMAIN", "gov.agora.xyz")
	t.Setenv("JANUS_URI", "https://gov.agora.xyz")
	t.Setenv("JANUS_CHAIN_IDS", "1, 10,137")
	t.Setenv("JANUS_RESOURCES", "https://gov.agora.xyz/a,https://gov.agora.xyz/b")
	t.Setenv("JANUS_NONCE_TTL", "5m")
	t.Setenv("JANUS_LOG_PRETTY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "gov.agora.xyz", cfg.Domain)
	assert.Equal(t, []uint64{1, 10, 137}, cfg.ChainIDs)
	assert.Equal(t, []string{"https://gov.agora.xyz/a", "https://gov.agora.xyz/b"}, cfg.Resources)
	assert.Equal(t, 5*time.Minute, cfg.NonceTTL)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, []byte(rawSecret+"-previous"), cfg.PreviousSecret)
}

func TestLoadRejectsBadChainIDs(t *testing.T) {
	clearEnv(t)
	t.Setenv("JANUS_SECRET", rawSecret)
	t.Setenv("JANUS_CHAIN_IDS", "1,mainnet")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JANUS_CHAIN_IDS")
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("JANUS_SECRET", rawSecret)
	t.Setenv("JANUS_STORE", "cassandra")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store backend")
}

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "janus.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":7000"
store = "sqlite"
sqlite_dsn = "file:test.db"
domain = "gov.agora.xyz"
statement = "Sign in to Agora governance."
chain_ids = [11155111]
nonce_ttl = "2m"
session_ttl = "12h"
`), 0o600))

	t.Setenv("JANUS_SECRET", rawSecret)
	t.Setenv("JANUS_CONFIG", path)
	// Environment still wins over the file.
	t.Setenv("JANUS_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.Addr)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "file:test.db", cfg.SQLiteDSN)
	assert.Equal(t, "gov.agora.xyz", cfg.Domain)
	assert.Equal(t, []uint64{11155111}, cfg.ChainIDs)
	assert.Equal(t, 2*time.Minute, cfg.NonceTTL)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("JANUS_SECRET", rawSecret)
	t.Setenv("JANUS_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	_, err := Load()
	require.Error(t, err)
}
