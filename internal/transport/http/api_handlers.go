package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/craftlink/chat-server/internal/auth"
)

// TokenHandlers mints connection tokens. Dev convenience only; real
// deployments receive tokens from the external identity service and
// never enable this.
type TokenHandlers struct {
	jwtConfig *auth.JWTConfig
	log       *zerolog.Logger
}

// NewTokenHandlers creates token handlers over the shared JWT config.
func NewTokenHandlers(jwtConfig *auth.JWTConfig, logger *zerolog.Logger) *TokenHandlers {
	return &TokenHandlers{jwtConfig: jwtConfig, log: logger}
}

// TokenRequest is the token mint request body.
type TokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// TokenResponse is the token mint response body.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Mint signs a token for the given user id.
// POST /api/token
func (h *TokenHandlers) Mint(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid token request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := auth.GenerateToken(h.jwtConfig, req.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to generate token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
