package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agoradao/janus/core"
)

// errorBody is the uniform failure response: a stable machine-readable kind
// plus a human-readable message. Internal error detail never crosses this
// boundary.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func kindOf(err error) (status int, kind string) {
	switch {
	case errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, core.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid_address"
	case errors.Is(err, core.ErrInvalidChain):
		return http.StatusBadRequest, "invalid_chain"
	case errors.Is(err, core.ErrInvalidNonce):
		return http.StatusUnauthorized, "invalid_nonce"
	case errors.Is(err, core.ErrNonceMismatch):
		return http.StatusUnauthorized, "nonce_mismatch"
	case errors.Is(err, core.ErrVerificationFailed):
		return http.StatusUnauthorized, "verification_failed"
	case errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, core.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusUnauthorized, "session_not_found"
	case errors.Is(err, core.ErrConfiguration):
		return http.StatusServiceUnavailable, "configuration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, kind := kindOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: kind, Message: message})
}
