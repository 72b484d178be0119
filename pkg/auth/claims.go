package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the shopper resolved from a verified access token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// AccessTokenClaims mirrors the claims the identity provider puts in its tokens.
// The subject carries the user id.
type AccessTokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the subject claim into a typed identity.
func (c *AccessTokenClaims) Identity() (Identity, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: id, Email: c.Email, Role: c.Role}, nil
}
