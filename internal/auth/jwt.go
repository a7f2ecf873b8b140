// Package auth handles JWT token creation, signing, and verification using a
// shared secret. Tokens carry the caller's user ID, organization, and roles;
// the organization claim is what scopes every request to its partition.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims structure
type Claims struct {
	UserID         int64    `json:"user_id"`
	OrganizationID int64    `json:"organization_id"`
	Roles          []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies bearer tokens with an HMAC secret.
type Manager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

// NewManager creates a token manager. The secret must already be validated by
// config loading; tokenTTL of zero falls back to one hour.
func NewManager(secret, issuer string, tokenTTL time.Duration) *Manager {
	if tokenTTL == 0 {
		tokenTTL = time.Hour
	}
	return &Manager{secret: []byte(secret), issuer: issuer, tokenTTL: tokenTTL}
}

// Generate creates a signed token for an authenticated user.
func (m *Manager) Generate(userID, organizationID int64, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:         userID,
		OrganizationID: organizationID,
		Roles:          roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a token string, returning its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
