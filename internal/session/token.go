package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
)

// Tokens signs the session id carried by the cookie.
type Tokens struct {
	secretKey []byte
}

func NewTokens(secretKey string) *Tokens {
	return &Tokens{secretKey: []byte(secretKey)}
}

func (t *Tokens) Encode(sessionId string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionId,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry and returns the session id.
func (t *Tokens) Decode(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", internal_errors.Unauthorized("Invalid session token")
	}

	if _, err := uuid.Parse(claims.ID); err != nil {
		return "", internal_errors.Unauthorized("Invalid session id")
	}
	return claims.ID, nil
}
