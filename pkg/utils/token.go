package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalClaims represents the claims in a locally issued operator token.
type LocalClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates short-lived tokens for the loopback API
// between the register UI and the terminal engine. These are independent of
// the server session token, which the engine only stores and forwards.
type TokenManager struct {
	secretKey []byte
	expiry    time.Duration
}

// NewTokenManager creates a new token manager
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{secretKey: []byte(secret), expiry: expiry}
}

// Issue generates a token for a logged-in operator
func (m *TokenManager) Issue(userID int64, username string) (string, error) {
	claims := &LocalClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "opentill-terminal",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate parses and validates a local operator token
func (m *TokenManager) Validate(tokenString string) (*LocalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LocalClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*LocalClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// TokenExpiry reads the exp claim from a server session token without
// verifying the signature. The terminal is not the token's audience; it only
// needs the expiry to decide when to renew ahead of time.
func TokenExpiry(tokenString string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenExpiresWithin reports whether the server token expires within d.
// Unparseable tokens report true.
func TokenExpiresWithin(tokenString string, d time.Duration) bool {
	exp, ok := TokenExpiry(tokenString)
	if !ok {
		return true
	}
	return time.Until(exp) < d
}
