package api

import (
	"errors"
	"net/http"

	"github.com/coop-records-api/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles session endpoints
type AuthHandler struct {
	resolver *auth.Resolver
	tokens   *auth.TokenManager
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(resolver *auth.Resolver, tokens *auth.TokenManager, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		resolver: resolver,
		tokens:   tokens,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier and secret are required"})
		return
	}

	sess, err := h.resolver.Resolve(c.Request.Context(), req.Identifier, req.Secret)
	if err != nil {
		status, msg := authFailureStatus(err)
		if status == http.StatusServiceUnavailable {
			h.log.Error().Err(err).Msg("Login failed against backend")
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	token, err := h.tokens.Issue(sess)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to issue session token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"session": sess,
	})
}

// Logout handles POST /v1/auth/logout. Sessions live in the signed
// token the client holds; logout succeeds once the client discards it.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := currentSession(c)
	if sess != nil {
		h.log.Info().Str("identity", sess.Identity).Msg("Logout")
	}
	c.Status(http.StatusNoContent)
}

// authFailureStatus maps the resolver's failure taxonomy to HTTP. Every
// failure is specific: the client can tell a bad secret from an unknown
// account from an outage.
func authFailureStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredential):
		return http.StatusUnauthorized, "invalid credential"
	case errors.Is(err, auth.ErrMalformedIdentifier):
		return http.StatusBadRequest, "identifier must be an email or a numeric owner ID"
	case errors.Is(err, auth.ErrUnknownOwner):
		return http.StatusNotFound, "owner ID not found"
	case errors.Is(err, auth.ErrUnknownEmail):
		return http.StatusNotFound, "email not found"
	case errors.Is(err, auth.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "backend unavailable, try again later"
	default:
		return http.StatusInternalServerError, "login failed"
	}
}
