package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"storefront-restock-api/internal/model"
	"storefront-restock-api/pkg/apierror"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// TokenValidator validates admin session tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenData, error)
}

// AuthConfig holds configuration for the admin auth middleware.
type AuthConfig struct {
	Tokens  TokenValidator
	APIKeys []string
}

// NewAdminAuth creates the middleware guarding administrative routes. A
// request passes with an X-Token session, or with one of the configured keys
// in X-Admin-Key or an Authorization bearer header.
func NewAdminAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Try X-Token first (session tokens)
			if token := r.Header.Get("X-Token"); token != "" && cfg.Tokens != nil {
				tokenData, err := cfg.Tokens.ValidateToken(r.Context(), token)
				if err != nil {
					writeError(w, apierror.Unauthorized("Invalid or expired token"))
					return
				}

				ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			apiKey := r.Header.Get("X-Admin-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-Token or X-Admin-Key header."))
				return
			}

			if !IsValidKey(apiKey, cfg.APIKeys) {
				writeError(w, apierror.Unauthorized("Invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// IsValidKey checks key against the valid keys in constant time per key.
func IsValidKey(key string, validKeys []string) bool {
	ok := false
	for _, valid := range validKeys {
		if valid == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			ok = true
		}
	}
	return ok
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
