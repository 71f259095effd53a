package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bootstrapIssuer = "showcase"

// BootstrapClaims are carried by the deployment-issued token a session can
// be started with instead of signing in anonymously.
type BootstrapClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// MintBootstrapToken signs an HS256 token for uid.
func MintBootstrapToken(secret []byte, uid string, ttl time.Duration) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", errors.New("uid is required")
	}
	now := time.Now()
	claims := BootstrapClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    bootstrapIssuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign bootstrap token: %w", err)
	}
	return signed, nil
}

// ParseBootstrapToken verifies the token and returns the uid it names.
func ParseBootstrapToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &BootstrapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(bootstrapIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*BootstrapClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.UID) == "" {
		return "", ErrInvalidToken
	}
	return claims.UID, nil
}
