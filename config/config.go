// Package config assembles the process configuration from defaults, an
// optional TOML file, and environment variables, in that order: the file
// overrides defaults, the environment overrides both. The signing secret is
// environment-only and never read from a file.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/agoradao/janus/core"
)

// Store backend selectors.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// MinSecretLen is the minimum signing secret size in bytes. HMAC-SHA256
// wants at least a hash-sized key.
const MinSecretLen = 32

// Config is the assembled process configuration.
type Config struct {
	Addr string

	Secret         []byte
	PreviousSecret []byte

	Store     string
	RedisURL  string
	SQLiteDSN string

	Domain    string
	URI       string
	Statement string
	ChainIDs  []uint64
	Resources []string

	NonceTTL   time.Duration
	SessionTTL time.Duration
	TokenTTL   time.Duration

	LogPretty bool
}

// duration lets TOML carry durations as strings like "10m".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type fileConfig struct {
	Addr      string   `toml:"addr"`
	Store     string   `toml:"store"`
	RedisURL  string   `toml:"redis_url"`
	SQLiteDSN string   `toml:"sqlite_dsn"`
	Domain    string   `toml:"domain"`
	URI       string   `toml:"uri"`
	Statement string   `toml:"statement"`
	ChainIDs  []uint64 `toml:"chain_ids"`
	Resources []string `toml:"resources"`
	NonceTTL  duration `toml:"nonce_ttl"`
	SessTTL   duration `toml:"session_ttl"`
	TokenTTL  duration `toml:"token_ttl"`
	LogPretty bool     `toml:"log_pretty"`
}

// Load builds the configuration. It fails when the signing secret is absent
// or too short, or when any supplied value does not parse.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:       ":9000",
		Store:      StoreRedis,
		RedisURL:   "redis://localhost:6379/0",
		SQLiteDSN:  "file:janus.db",
		Domain:     "localhost",
		URI:        "http://localhost",
		Statement:  "Sign in to continue.",
		ChainIDs:   []uint64{1, 11155111},
		NonceTTL:   core.NonceTTL,
		SessionTTL: core.SessionTTL,
		TokenTTL:   core.SessionTTL,
	}

	if path := os.Getenv("JANUS_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("JANUS_SECRET is required")
	}
	if len(cfg.Secret) < MinSecretLen {
		return nil, fmt.Errorf("JANUS_SECRET must be at least %d bytes, got %d", MinSecretLen, len(cfg.Secret))
	}
	switch cfg.Store {
	case StoreRedis, StoreMemory, StoreSQLite:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if fc.Addr != "" {
		c.Addr = fc.Addr
	}
	if fc.Store != "" {
		c.Store = fc.Store
	}
	if fc.RedisURL != "" {
		c.RedisURL = fc.RedisURL
	}
	if fc.SQLiteDSN != "" {
		c.SQLiteDSN = fc.SQLiteDSN
	}
	if fc.Domain != "" {
		c.Domain = fc.Domain
	}
	if fc.URI != "" {
		c.URI = fc.URI
	}
	if fc.Statement != "" {
		c.Statement = fc.Statement
	}
	if len(fc.ChainIDs) > 0 {
		c.ChainIDs = fc.ChainIDs
	}
	if len(fc.Resources) > 0 {
		c.Resources = fc.Resources
	}
	if fc.NonceTTL.Duration > 0 {
		c.NonceTTL = fc.NonceTTL.Duration
	}
	if fc.SessTTL.Duration > 0 {
		c.SessionTTL = fc.SessTTL.Duration
	}
	if fc.TokenTTL.Duration > 0 {
		c.TokenTTL = fc.TokenTTL.Duration
	}
	if fc.LogPretty {
		c.LogPretty = true
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("JANUS_SECRET"); v != "" {
		c.Secret = decodeSecret(v)
	}
	if v := os.Getenv("JANUS_PREVIOUS_SECRET"); v != "" {
		c.PreviousSecret = decodeSecret(v)
	}
	if v := os.Getenv("JANUS_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("JANUS_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("JANUS_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("JANUS_SQLITE_DSN"); v != "" {
		c.SQLiteDSN = v
	}
	if v := os.Getenv("JANUS_DOMAIN"); v != "" {
		c.Domain = v
	}
	if v := os.Getenv("JANUS_URI"); v != "" {
		c.URI = v
	}
	if v := os.Getenv("JANUS_STATEMENT"); v != "" {
		c.Statement = v
	}
	if v := os.Getenv("JANUS_CHAIN_IDS"); v != "" {
		ids, err := parseChainIDs(v)
		if err != nil {
			return err
		}
		c.ChainIDs = ids
	}
	if v := os.Getenv("JANUS_RESOURCES"); v != "" {
		c.Resources = splitList(v)
	}
	for _, ttl := range []struct {
		env  string
		into *time.Duration
	}{
		{"JANUS_NONCE_TTL", &c.NonceTTL},
		{"JANUS_SESSION_TTL", &c.SessionTTL},
		{"JANUS_TOKEN_TTL", &c.TokenTTL},
	} {
		if v := os.Getenv(ttl.env); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", ttl.env, err)
			}
			*ttl.into = d
		}
	}
	if v := os.Getenv("JANUS_LOG_PRETTY"); v != "" {
		c.LogPretty = v == "1" || strings.EqualFold(v, "true")
	}
	return nil
}

// decodeSecret accepts either a base64-encoded or a raw secret. Base64 is
// preferred since janus-keygen emits it, but a raw passphrase of sufficient
// length works too.
func decodeSecret(v string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
		return decoded
	}
	return []byte(v)
}

func parseChainIDs(v string) ([]uint64, error) {
	var ids []uint64
	for _, part := range splitList(v) {
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing JANUS_CHAIN_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("JANUS_CHAIN_IDS is set but empty")
	}
	return ids, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
