package identity

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidSecret is returned when a presented registrar secret does not
// match the configured hash.
var ErrInvalidSecret = errors.New("invalid registrar secret")

// HashSecret returns the bcrypt hash of secret, suitable for the
// auth.registrar_secret_hash setting.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// CheckSecret compares secret against a bcrypt hash.
func CheckSecret(hash, secret string) error {
	if hash == "" {
		return ErrInvalidSecret
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrInvalidSecret
	}
	return nil
}
