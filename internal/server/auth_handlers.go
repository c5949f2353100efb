// internal/server/auth_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markb/bodylog/internal/auth"
	"github.com/markb/bodylog/internal/log"
	"github.com/markb/bodylog/internal/oauth"
)

type CodeExchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectURI  string `json:"redirectUri"`
}

type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

type UserResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// handleCodeExchange redeems an authorization code plus PKCE verifier
// for an application session.
// POST /auth/google/code {code, codeVerifier, redirectUri}
func (s *Server) handleCodeExchange(w http.ResponseWriter, r *http.Request) {
	var req CodeExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Code == "" || req.CodeVerifier == "" || req.RedirectURI == "" {
		s.writeError(w, http.StatusBadRequest, "code, codeVerifier and redirectUri are required")
		return
	}

	result, err := s.authService.ExchangeCode(r.Context(), req.Code, req.CodeVerifier, req.RedirectURI)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRedirectNotAllowed):
			s.writeError(w, http.StatusBadRequest, "invalid redirect uri")
		case errors.Is(err, oauth.ErrEmailNotVerified):
			s.writeError(w, http.StatusBadRequest, "email is not verified")
		case errors.Is(err, auth.ErrProviderNotConfigured):
			s.writeError(w, http.StatusInternalServerError, "authentication is not configured")
		default:
			log.Warn("code exchange failed", "error", err)
			s.writeError(w, http.StatusBadRequest, "code exchange failed")
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SessionResponse{
		User: UserResponse{
			ID:      result.User.ID,
			Email:   result.User.Email,
			Name:    result.User.DisplayName,
			Picture: result.User.AvatarURL,
		},
		Token: result.Token,
	})
}

// handleMe returns the identity of the verified bearer token.
// GET /auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		s.writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	user, err := s.authService.GetUserByID(claims.UserID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"id":       user.ID,
		"email":    user.Email,
		"name":     user.DisplayName,
		"googleId": user.GoogleID,
	})
}

// handleLogout acknowledges a client logout. Tokens are stateless, so
// there is nothing to revoke server-side; the client clears its copy.
// POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Logged out successfully",
	})
}
