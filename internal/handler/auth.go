package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storefront-restock-api/internal/middleware"
	"storefront-restock-api/internal/model"
	"storefront-restock-api/internal/service"
	"storefront-restock-api/pkg/apierror"
	"storefront-restock-api/pkg/response"
)

// AuthHandler issues and revokes admin session tokens.
type AuthHandler struct {
	tokenService *service.TokenService
	loginKey     string
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokenService *service.TokenService, loginKey string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		tokenService: tokenService,
		loginKey:     loginKey,
		logger:       logger.Named("auth_handler"),
	}
}

// LoginRequest represents the request body for admin login.
type LoginRequest struct {
	Key string `json:"key"`
}

// TokenResponse represents the response for token generation.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int       `json:"expires_in"`
}

// Login handles POST /api/v1/admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.tokenService == nil || h.loginKey == "" {
		response.Error(w, apierror.ServiceUnavailable("admin login is not configured"))
		return
	}

	key := r.Header.Get("X-Login-Key")
	if key == "" {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, apierror.BadRequest("invalid request body"))
			return
		}
		defer r.Body.Close()
		key = req.Key
	}

	if key == "" {
		response.Error(w, apierror.BadRequest("key is required"))
		return
	}
	if !middleware.IsValidKey(key, []string{h.loginKey}) {
		h.logger.Warn("admin login rejected", zap.String("remote_addr", r.RemoteAddr))
		response.Error(w, apierror.Unauthorized("invalid login key"))
		return
	}

	token, expiresAt, err := h.tokenService.GenerateToken(r.Context(), model.TokenData{
		Subject:  "admin",
		RemoteIP: remoteIP(r),
	})
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		response.Error(w, apierror.InternalError("failed to generate token"))
		return
	}

	response.OK(w, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: int(time.Until(expiresAt).Seconds()),
	})
}

// Logout handles POST /api/v1/admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.tokenService == nil {
		response.Error(w, apierror.ServiceUnavailable("admin login is not configured"))
		return
	}
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header is required"))
		return
	}
	if err := h.tokenService.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}
	response.OK(w, map[string]string{"status": "revoked"})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
