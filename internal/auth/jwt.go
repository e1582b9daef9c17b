// Package auth provides JWT session tokens and password hashing for the
// pastebin application.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers → inactive account + confirmation email
// 2. User clicks the confirmation link → account activated
// 3. User logs in → server issues a JWT, stores it in the HttpOnly
//    "access_token" cookie
// 4. On subsequent requests, middleware reads the cookie, validates the JWT,
//    re-checks the user still exists, and puts the user in the request context
//
// WHY JWT?
// The token is self-contained — the signed payload carries the username and
// expiry, so validating the signature needs no session table. We still do an
// existence re-check against the user store on every request, so a deleted
// user's token stops working before it expires.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the expiry applied when the caller doesn't specify one.
// The login flow overrides it with the configured session length.
const DefaultTokenTTL = 15 * time.Minute

const issuer = "pastebin"

// supportedMethods maps the two accepted algorithm names to their HMAC
// signing methods. Anything else is a configuration error.
var supportedMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS512": jwt.SigningMethodHS512,
}

// TokenService signs and verifies session tokens.
//
// It holds the shared HMAC secret and the configured signing algorithm
// (HS256 or HS512). The same secret must be used for both operations.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	alg    string
}

// NewTokenService creates a TokenService for the given secret and algorithm.
//
// The secret should be at least 32 bytes of random data in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
//
// algorithm must be "HS256" or "HS512"; any other value is rejected so a
// typo in the environment fails at startup rather than at first login.
func NewTokenService(secret, algorithm string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	method, ok := supportedMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q (want HS256 or HS512)", algorithm)
	}
	return &TokenService{secret: []byte(secret), method: method, alg: algorithm}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims, which includes
// the standard fields; we use "sub" (Subject) to carry the username.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a session token for the given username.
//
// ttl <= 0 falls back to DefaultTokenTTL (15 minutes). Login passes the
// configured session lifetime instead.
func (s *TokenService) Issue(username string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(s.method, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the username it
// encodes.
//
// An optional "Bearer " prefix is stripped first — the cookie value is
// sometimes stored with the scheme included, and the check must accept both
// forms.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens minted by other apps)
//   - Algorithm matches the configured one (prevents algorithm confusion
//     attacks, where an attacker re-signs the payload under a weaker method)
func (s *TokenService) Validate(tokenStr string) (string, error) {
	tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")
	if tokenStr == "" {
		return "", errors.New("auth: empty token")
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.alg}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
