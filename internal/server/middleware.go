// internal/server/middleware.go
package server

import (
	"net/http"
	"strings"

	"github.com/markb/bodylog/internal/auth"
)

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			s.writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}

		claims, err := s.authService.ValidateToken(parts[1])
		if err != nil {
			if err == auth.ErrTokenExpired {
				s.writeError(w, http.StatusUnauthorized, "token expired")
				return
			}
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// optionalAuthMiddleware extracts claims if a valid bearer token is
// present but never rejects the request. Handlers behind it serve both
// guests and authenticated users with different content shaping.
func (s *Server) optionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if claims, err := s.authService.ValidateToken(tokenString); err == nil {
				r = r.WithContext(auth.WithClaims(r.Context(), claims))
			}
			// An invalid token just means unauthenticated here
		}
		next.ServeHTTP(w, r)
	})
}
