// Package auth issues and validates the bearer tokens of the API.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/preskrba/internal/model"
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Claims are the JWT claims of a session.
type Claims struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	LocationID *int64 `json:"location_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor returns the workflow actor the token speaks for.
func (c *Claims) Actor() model.Actor {
	return model.Actor{
		UserID:     c.UserID,
		Username:   c.Username,
		Role:       c.Role,
		LocationID: c.LocationID,
	}
}

// Issuer signs and validates HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an Issuer. A zero ttl means DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a token for a user with a unique token ID.
func (i *Issuer) Issue(u *model.User) (string, error) {
	jti, err := newTokenID()
	if err != nil {
		return "", fmt.Errorf("generating token id: %w", err)
	}

	now := time.Now()
	claims := Claims{
		UserID:     u.ID,
		Username:   u.Username,
		Role:       u.Role,
		LocationID: u.LocationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims. Expired tokens and tokens
// signed with another secret or method are rejected.
func (i *Issuer) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New("token has no id")
	}
	return claims, nil
}

func newTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
