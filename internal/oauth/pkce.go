// Package oauth implements the provider side of the login flow:
// PKCE (Proof Key for Code Exchange, RFC 7636) generation, the
// authorization-code exchange, and identity-token verification.
package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// ChallengeMethod is the only PKCE challenge method bodylog supports.
const ChallengeMethod = "S256"

// PKCEPair is a code verifier and its derived S256 challenge.
// The verifier is generated once per login attempt and is single-use.
type PKCEPair struct {
	Verifier  string `json:"verifier"`
	Challenge string `json:"challenge"`
}

// GeneratePKCE generates a cryptographically random code verifier and
// its S256 challenge. The verifier is a 43-character URL-safe string
// (32 random bytes, base64url without padding).
func GeneratePKCE() (*PKCEPair, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	verifier := base64.RawURLEncoding.EncodeToString(b)
	return &PKCEPair{
		Verifier:  verifier,
		Challenge: GenerateCodeChallenge(verifier),
	}, nil
}

// GenerateCodeChallenge computes the S256 code challenge from a verifier.
func GenerateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
