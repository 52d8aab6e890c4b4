// Package auth mints and verifies the access tokens the echo server accepts
// as a websocket subprotocol.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AnonToken is the token sent when no credentials are configured.
const AnonToken = "anon"

// Errors
var (
	ErrNoToken      = errors.New("no token supplied")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("signing secret is required")
)

// Claims are the token claims. The token is only valid from IP.
type Claims struct {
	IP string `json:"ip"`
	jwt.RegisteredClaims
}

// Mint returns an HS256 token for user, bound to ip and valid for validity.
func Mint(secret, user, ip string, validity time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	if user == "" {
		return "", fmt.Errorf("user is required")
	}
	if validity <= 0 {
		return "", fmt.Errorf("validity must be positive, got %s", validity)
	}

	now := time.Now()
	claims := Claims{
		IP: ip,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks token against secret and the caller's ip and returns the user
// it was minted for. An empty or "null" token yields ErrNoToken; anything else
// that does not verify yields ErrInvalidToken.
func Verify(secret, token, ip string) (string, error) {
	if token == "" || token == "null" {
		return "", ErrNoToken
	}
	if secret == "" {
		return "", ErrNoSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.IP != ip {
		return "", fmt.Errorf("%w: issued for %s", ErrInvalidToken, claims.IP)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
