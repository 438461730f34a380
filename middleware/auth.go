package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

const bearerPrefix = "Bearer "

type contextKey string

const userContextKey contextKey = "user"

// Authenticate builds JWT-bearer middleware bound to a single signing
// secret, so the secret lives in configuration instead of a package-level
// global.
func Authenticate(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil || tokenString == "" {
				logger.WarnContext(r.Context(), "missing or malformed authorization header")
				http.Error(w, "unauthorized: missing bearer token", http.StatusUnauthorized)
				return
			}

			parsedToken, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !parsedToken.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					http.Error(w, "unauthorized: token expired", http.StatusUnauthorized)
					return
				}
				logger.WarnContext(r.Context(), "token validation failed", "error", err)
				http.Error(w, "unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := parsedToken.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "unauthorized: invalid token claims", http.StatusUnauthorized)
				return
			}
			if _, idOk := claims[jwtClaimUserID]; !idOk {
				http.Error(w, "unauthorized: missing user_id claim", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimPrefix(authHeader, bearerPrefix), nil
}
