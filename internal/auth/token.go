package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const tokenIssuer = "docanalyzer"

// TokenManager issues and verifies session tokens. Tokens carry the
// session timeout as their expiry, which is how the timeout is actually
// enforced: an expired token fails verification and the client must log
// in again.
type TokenManager struct {
	secret  []byte
	timeout time.Duration
}

// NewTokenManager creates a token manager with the given signing secret
// and session timeout.
func NewTokenManager(secret string, timeout time.Duration) *TokenManager {
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), timeout: timeout}
}

// Issue creates a signed token for the user.
func (m *TokenManager) Issue(userID uuid.UUID, email string) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(userID.String()).
		Claim("email", email).
		IssuedAt(now).
		Expiration(now.Add(m.timeout)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify parses and validates a token (signature, expiry, issuer) and
// returns the user id it was issued for.
func (m *TokenManager) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	userID, err := uuid.Parse(token.Subject())
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a user id: %w", err)
	}

	return userID, nil
}
