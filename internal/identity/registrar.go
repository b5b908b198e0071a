// Package identity issues and checks the credentials that allow a caller to
// add report cards: a bcrypt-hashed registrar secret, exchanged for a
// short-lived HS256 registrar token.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RegistrarClaims are the JWT claims of a registrar token.
type RegistrarClaims struct {
	jwt.RegisteredClaims
	Type string `json:"type"` // always "registrar"
}

const tokenTypeRegistrar = "registrar"

// RegistrarTokenIssuer issues and verifies registrar tokens signed with a
// shared HMAC secret.
type RegistrarTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewRegistrarTokenIssuer creates a RegistrarTokenIssuer.
//
//	secret: HMAC signing key; must not be empty.
//	issuer: the "iss" claim value.
//	ttl:    token lifetime (default: 8 hours).
func NewRegistrarTokenIssuer(secret, issuer string, ttl time.Duration) (*RegistrarTokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("registrar signing secret is empty")
	}
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &RegistrarTokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue creates a signed registrar token for subject.
func (r *RegistrarTokenIssuer) Issue(subject string) (string, error) {
	now := time.Now().UTC()
	claims := RegistrarClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
			ID:        uuid.New().String(),
		},
		Type: tokenTypeRegistrar,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign registrar token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a registrar token, returning its claims.
func (r *RegistrarTokenIssuer) Verify(tokenStr string) (*RegistrarClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&RegistrarClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return r.secret, nil
		},
		jwt.WithIssuer(r.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify registrar token: %w", err)
	}
	claims, ok := token.Claims.(*RegistrarClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid registrar token claims")
	}
	if claims.Type != tokenTypeRegistrar {
		return nil, fmt.Errorf("not a registrar token")
	}
	return claims, nil
}
