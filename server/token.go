package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenSecretLen = 32

var errInvalidToken = errors.New("invalid token")

// TokenIssuer signs player identity tokens. A token names the player id it
// was issued to and a random subject, so it stays unique even if ids restart
// with the process.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer uses secret, or a random per-process secret when empty
func NewTokenIssuer(secret string) *TokenIssuer {
	if secret != "" {
		return &TokenIssuer{secret: []byte(secret)}
	}
	b := make([]byte, tokenSecretLen)
	// crypto/rand.Read never returns an error since Go 1.24; it crashes the
	// program instead of handing back a short read.
	rand.Read(b)
	return &TokenIssuer{secret: b}
}

// Issue signs a token for playerID
func (t *TokenIssuer) Issue(playerID int) (string, error) {
	claims := jwt.MapClaims{
		"pid": playerID,
		"sub": uuid.NewString(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// ParseToken verifies a token and returns the player id and subject
func (t *TokenIssuer) ParseToken(tokenStr string) (int, string, error) {
	token, err := jwt.Parse(tokenStr, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errInvalidToken
	}
	pid, ok := claims["pid"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("%w: missing pid", errInvalidToken)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, "", fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	return int(pid), sub, nil
}
