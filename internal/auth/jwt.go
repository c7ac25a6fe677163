// Package auth verifies the bearer tokens that the expense backend issues.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/groupsplit/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// JWTManager validates backend-issued HS256 tokens. Generate exists for local
// development and tests; production tokens come from the backend's login flow.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims carries the caller identity. The backend puts the account id in
// user_id and falls back to the standard subject claim.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// User returns the identity carried by the claims.
func (c *Claims) User() models.User {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return models.User{ID: id, Email: c.Email, Name: c.Name}
}

const defaultTokenDuration = time.Hour

// Option configures a JWTManager.
type Option func(*JWTManager)

// WithTokenDuration sets the lifetime of tokens signed by Generate.
func WithTokenDuration(d time.Duration) Option {
	return func(m *JWTManager) { m.tokenDuration = d }
}

// NewJWTManager creates a manager sharing secretKey with the backend.
func NewJWTManager(secretKey string, opts ...Option) *JWTManager {
	m := &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: defaultTokenDuration,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generate signs a token for user. The server never calls it; it backs tests and
// local tooling that need a token the backend would accept.
func (m *JWTManager) Generate(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and validates a token, returning its claims.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.User().ID == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return claims, nil
}
