package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/agoradao/janus/core"
	"github.com/agoradao/janus/service"
)

const sessionContextKey = "janusSession"

func bearerToken(c *gin.Context) (string, bool) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func sessionFromContext(c *gin.Context) *core.Session {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil
	}
	session, ok := value.(*core.Session)
	if !ok {
		return nil
	}
	return session
}

// AuthMiddleware resolves the bearer token to a live session and aborts with
// the matching error kind when it cannot.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			writeError(c, core.ErrInvalidToken)
			return
		}

		session, err := authService.Session(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}

		c.Set(sessionContextKey, session)
		c.Set("userAddress", session.Address)

		c.Next()
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= 500 {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
