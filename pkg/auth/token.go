package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrInvalidSubject is returned when a token's subject is not a user id.
var ErrInvalidSubject = errors.New("token subject is not a valid user id")

// MintAccessToken signs a token shaped like the identity provider's. Production
// tokens are issued by the provider; this is used by local tooling and tests.
func MintAccessToken(cfg config.AuthConfig, now time.Time, identity Identity, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if identity.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}

	claims := AccessTokenClaims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the token and returns its claims.
func ParseAccessToken(cfg config.AuthConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		strings.TrimSpace(tokenString),
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		},
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseIdentity validates the token and resolves the shopper identity.
func ParseIdentity(cfg config.AuthConfig, tokenString string) (Identity, error) {
	claims, err := ParseAccessToken(cfg, tokenString)
	if err != nil {
		return Identity{}, err
	}
	identity, err := claims.Identity()
	if err != nil {
		return Identity{}, ErrInvalidSubject
	}
	return identity, nil
}

// PeekSubject reads the user id from a token without verifying it. Clients
// that never hold the signing secret use it to label local state; the server
// still verifies every request.
func PeekSubject(tokenString string) (uuid.UUID, error) {
	var claims AccessTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(tokenString), &claims); err != nil {
		return uuid.Nil, fmt.Errorf("decode token: %w", err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidSubject
	}
	return id, nil
}
