// internal/auth/jwt.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenExpiry is how long an issued application token is valid.
	TokenExpiry = 30 * 24 * time.Hour

	Issuer   = "bodylog"
	Audience = "bodylog"
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken is returned for any other verification failure.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the verified identity extracted from an application token.
type Claims struct {
	UserID    string
	Email     string
	GoogleID  string
	ExpiresAt time.Time
}

// GenerateToken issues a signed application JWT for the user. The
// payload carries only the identity fields downstream handlers need.
func (s *Service) GenerateToken(user *User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(TokenExpiry)

	claims := jwt.MapClaims{
		"sub":       user.ID,
		"email":     user.Email,
		"google_id": user.GoogleID,
		"iss":       Issuer,
		"aud":       Audience,
		"exp":       expiresAt.Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies the signature and standard claims of an
// application token. An expired token is reported as ErrTokenExpired;
// every other failure collapses to ErrInvalidToken.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithAudience(Audience), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := mapClaims["email"].(string)
	googleID, _ := mapClaims["google_id"].(string)

	claims := &Claims{
		UserID:   sub,
		Email:    email,
		GoogleID: googleID,
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
