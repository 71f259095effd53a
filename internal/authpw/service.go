// Package authpw guards the admin editor with a single shared password.
package authpw

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DevPassword is the placeholder used when no credential is configured.
const DevPassword = "admin123"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Gate compares submitted passwords against a bcrypt hash. The plaintext is
// never kept.
type Gate struct {
	hash        []byte
	placeholder bool
}

// NewGate prefers a precomputed bcrypt hash. Otherwise it hashes password,
// falling back to DevPassword when both are empty.
func NewGate(password, passwordHash string) (*Gate, error) {
	if hash := strings.TrimSpace(passwordHash); hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("parse admin password hash: %w", err)
		}
		return &Gate{hash: []byte(hash)}, nil
	}

	placeholder := false
	if password == "" {
		password = DevPassword
		placeholder = true
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: []byte(hash), placeholder: placeholder || password == DevPassword}, nil
}

// Placeholder reports whether the gate still uses the development password.
func (g *Gate) Placeholder() bool {
	return g.placeholder
}

func (g *Gate) Check(password string) error {
	if password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
