// Package janus provides a typed client for the janus session service: the
// challenge/login/session/logout contract over HTTP, plus a local cached
// session for the wallet flow.
//
// The cache is a convenience only. It remembers the last session, token, and
// signed challenge so a UI can decide when to re-authenticate, but every
// authorization decision still goes to the server; a cached record is never
// proof that the session is live.
package janus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/agoradao/janus/core"
)

// Challenge is the server's reply to a challenge request. ExpiresAt is the
// nonce deadline: the signed message must be submitted before it.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CachedSession is the client-side copy of an established login.
type CachedSession struct {
	Session   core.Session
	Token     string
	Message   string
	Signature string
}

// Stale reports whether the session is close enough to expiry that the
// caller should re-authenticate. It mirrors the server's refresh threshold.
func (s *CachedSession) Stale(now time.Time) bool {
	return s.Session.NeedsRefresh(now)
}

// Client talks to a janus server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	cached *CachedSession
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// falls back to a 10-second-timeout default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
	}
}

type challengeRequest struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
}

type loginRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
	Address   string `json:"address"`
	ChainID   uint64 `json:"chain_id"`
}

type loginReply struct {
	Session core.Session `json:"session"`
	Token   string       `json:"token"`
}

type sessionReply struct {
	Session core.Session `json:"session"`
}

// CreateChallenge asks the server for a nonce and the message to sign.
func (c *Client) CreateChallenge(ctx context.Context, address string, chainID uint64) (*Challenge, error) {
	var challenge Challenge
	err := c.post(ctx, "/auth/challenge", challengeRequest{Address: address, ChainID: chainID}, &challenge)
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// Login submits a signed challenge, caches the resulting session, and
// returns it together with the bearer token.
func (c *Client) Login(ctx context.Context, message, signature, nonce, address string, chainID uint64) (*core.Session, string, error) {
	var reply loginReply
	err := c.post(ctx, "/auth/login", loginRequest{
		Message:   message,
		Signature: signature,
		Nonce:     nonce,
		Address:   address,
		ChainID:   chainID,
	}, &reply)
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	c.cached = &CachedSession{
		Session:   reply.Session,
		Token:     reply.Token,
		Message:   message,
		Signature: signature,
	}
	c.mu.Unlock()

	session := reply.Session
	return &session, reply.Token, nil
}

// Session fetches the current session from the server using the cached
// token. The server answer replaces the cached copy.
func (c *Client) Session(ctx context.Context) (*core.Session, error) {
	token, ok := c.token()
	if !ok {
		return nil, core.ErrInvalidToken
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/session", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var reply sessionReply
	if err := c.do(req, &reply); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.cached != nil {
		c.cached.Session = reply.Session
	}
	c.mu.Unlock()

	session := reply.Session
	return &session, nil
}

// Logout revokes the cached session on the server and drops the cache.
// Without a cached login it is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	token, ok := c.token()
	if !ok {
		return nil
	}

	req, err := c.newRequest(ctx, http.MethodDelete, "/auth/session", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	err = c.do(req, nil)

	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()

	return err
}

// Cached returns a copy of the cached session, or nil when not logged in.
func (c *Client) Cached() *CachedSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		return nil
	}
	copied := *c.cached
	return &copied
}

func (c *Client) token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil || c.cached.Token == "" {
		return "", false
	}
	return c.cached.Token, true
}

func (c *Client) post(ctx context.Context, path string, body, into any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, into)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, into any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if into == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// kindToError maps the server's stable error kinds back to the sentinels
// callers match with errors.Is.
var kindToError = map[string]error{
	"bad_request":         core.ErrBadRequest,
	"invalid_address":     core.ErrInvalidAddress,
	"invalid_chain":       core.ErrInvalidChain,
	"invalid_nonce":       core.ErrInvalidNonce,
	"nonce_mismatch":      core.ErrNonceMismatch,
	"verification_failed": core.ErrVerificationFailed,
	"invalid_token":       core.ErrInvalidToken,
	"token_expired":       core.ErrTokenExpired,
	"session_not_found":   core.ErrSessionNotFound,
	"configuration_error": core.ErrConfiguration,
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if sentinel, ok := kindToError[body.Error]; ok {
		return sentinel
	}
	return fmt.Errorf("%s: %s", body.Error, body.Message)
}
