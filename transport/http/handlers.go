package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/agoradao/janus/core"
	"github.com/agoradao/janus/ports"
	"github.com/agoradao/janus/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	health      ports.Pinger
	logger      zerolog.Logger
}

// NewAuthHandlers creates new auth handlers. health may be nil when the
// backing store has no liveness probe.
func NewAuthHandlers(authService *service.AuthService, health ports.Pinger, logger zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		health:      health,
		logger:      logger,
	}
}

type challengeRequest struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
}

type challengeResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type loginRequest struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Address   string `json:"address" binding:"required"`
	ChainID   uint64 `json:"chain_id" binding:"required"`
}

type loginResponse struct {
	Session *core.Session `json:"session"`
	Token   string        `json:"token"`
}

// Challenge issues a fresh nonce and the canonical message to sign.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	// No binding:"required" here: field validation belongs to the service,
	// which distinguishes a bad address from an unsupported chain.
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, core.ErrBadRequest)
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.Address, req.ChainID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, challengeResponse{
		Nonce:     challenge.Nonce,
		Message:   challenge.Message,
		ExpiresAt: challenge.ExpiresAt,
	})
}

// Login verifies a signed challenge and returns the session plus its bearer
// token.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, core.ErrBadRequest)
		return
	}

	session, token, err := h.authService.Login(c.Request.Context(), req.Message, req.Signature, req.Nonce, req.Address, req.ChainID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{Session: session, Token: token})
}

// Session returns the session behind the presented bearer token.
func (h *AuthHandlers) Session(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		writeError(c, core.ErrInvalidToken)
		return
	}

	session, err := h.authService.Session(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Logout revokes the session behind the presented bearer token.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		writeError(c, core.ErrInvalidToken)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated caller's identity.
func (h *AuthHandlers) Me(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		writeError(c, core.ErrSessionNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address,
		"chain_id":   session.ChainID,
		"session_id": session.ID,
	})
}

// Authorize reports whether the caller holds a live session. Reaching this
// handler means the middleware already validated the token.
func (h *AuthHandlers) Authorize(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		writeError(c, core.ErrSessionNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    session.Address,
	})
}

// Healthz reports process and store liveness.
func (h *AuthHandlers) Healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			h.logger.Error().Err(err).Msg("store ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
