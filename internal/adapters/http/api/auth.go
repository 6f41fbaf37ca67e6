package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionCookieName carries the stream token between /register and /events.
const sessionCookieName = "session_token"

// tokenIssuer mints and verifies HS256 stream tokens. The subject claim is
// the client id the connection will occupy.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func newTokenIssuer(secret []byte, ttl time.Duration) *tokenIssuer {
	return &tokenIssuer{secret: secret, ttl: ttl}
}

// Issue signs a token for the given client id.
func (t *tokenIssuer) Issue(clientID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the subject claim.
func (t *tokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: unexpected signing method %v", ErrBadToken, token.Header["alg"])
			}
			return t.secret, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadToken, err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrBadToken)
	}
	return claims.Subject, nil
}
