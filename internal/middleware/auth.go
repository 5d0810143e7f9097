package middleware

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/apocalipssi/docanalyzer/internal/auth"
	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/request"
	"go.uber.org/zap"
)

// Auth creates authentication middleware that validates bearer tokens
// and attaches the authenticated user to the request context.
func Auth(tokens *auth.TokenManager, users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			ctx := r.Context()

			userID, err := tokens.Verify(parts[1])
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, database.ErrUserNotFound) {
					respondError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				logger.Error("failed_to_load_token_user", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}
			if user == nil || user.Disabled {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
