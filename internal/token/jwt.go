// Package token issues and verifies the bearer credentials the HTTP
// layer resolves into a caller identity.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Claims carried by every issued token. ID (jti) keys the revocation
// store so logout can invalidate a single token.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

// Maker signs and verifies HMAC JWTs
type Maker struct {
	secret []byte
	ttl    time.Duration
}

// NewMaker creates a token maker. The secret must be non-empty.
func NewMaker(secret string, ttl time.Duration) (*Maker, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &Maker{secret: []byte(secret), ttl: ttl}, nil
}

// Issue creates a signed token for the user
func (m *Maker) Issue(userID int64, role string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(m.ttl).Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses the token and returns its claims if valid
func (m *Maker) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

// TTL returns the configured token lifetime
func (m *Maker) TTL() time.Duration {
	return m.ttl
}
