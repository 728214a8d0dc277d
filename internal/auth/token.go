// Package auth mints and verifies the short-lived session tokens that
// gate bridge attachment. A client first asks the HTTP API for a token,
// then presents it when opening the bridge socket; the token binds the
// socket to the origin the HTTP request came from.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// expiry, wrong signing method, malformed claims.
	ErrInvalidToken = errors.New("auth: invalid session token")
)

// SessionClaims are the claims carried by a bridge session token.
type SessionClaims struct {
	Origin string `json:"origin"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies session tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. An empty secret gets a random one, which
// is fine for single-instance deployments where tokens never outlive the
// process.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if secret == "" {
		secret = randomSecret()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Mint issues a session token bound to the given session ID and origin.
func (i *Issuer) Mint(sessionID, origin string) (string, error) {
	now := i.now()
	claims := SessionClaims{
		Origin: origin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns its claims.
func (i *Issuer) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// randomSecret generates a per-process signing secret.
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("auth: cannot read random secret: %v", err))
	}
	return hex.EncodeToString(buf)
}
