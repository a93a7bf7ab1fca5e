package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/models"
	"github.com/referolabs/refero/internal/services/auth"
)

// AuthHandler serves account registration and token issuance
type AuthHandler struct {
	auth   *auth.Service
	logger arbor.ILogger
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(authService *auth.Service, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		logger: logger,
	}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RegisterRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	// A fresh account is signed in immediately
	token, err := h.auth.IssueToken(r.Context(), &models.TokenRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.logger.Error().Str("username", user.Username).Err(err).Msg("Token issuance after registration failed")
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, token)
}

// Token handles POST /api/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.TokenRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	token, err := h.auth.IssueToken(r.Context(), &req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, token)
}
