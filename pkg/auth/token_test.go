package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "secret",
		Issuer:    "https://auth.flintflours.in",
		Audience:  "authenticated",
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), Identity{UserID: userID, Email: "a@b.in", Role: "authenticated"}, time.Hour)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	identity, err := ParseIdentity(cfg, token)
	if err != nil {
		t.Fatalf("parse identity: %v", err)
	}
	if identity.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, identity.UserID)
	}
	if identity.Email != "a@b.in" {
		t.Fatalf("unexpected email %q", identity.Email)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), Identity{UserID: uuid.New()}, time.Hour)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now(), Identity{UserID: uuid.New()}, time.Hour)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now(), Identity{UserID: uuid.New()}, time.Hour)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	other := cfg
	other.JWTSecret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseIdentityRejectsNonUUIDSubject(t *testing.T) {
	cfg := testConfig()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseIdentity(cfg, token); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}

func TestMintRequiresSecretAndUser(t *testing.T) {
	if _, err := MintAccessToken(config.AuthConfig{}, time.Now(), Identity{UserID: uuid.New()}, time.Hour); err == nil {
		t.Fatal("expected error without secret")
	}
	if _, err := MintAccessToken(testConfig(), time.Now(), Identity{}, time.Hour); err == nil {
		t.Fatal("expected error without user id")
	}
}

func TestPeekSubjectIgnoresSignature(t *testing.T) {
	user := uuid.New()
	token, err := MintAccessToken(testConfig(), time.Now(), Identity{UserID: user}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	got, err := PeekSubject(token)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if got != user {
		t.Fatalf("expected %s, got %s", user, got)
	}
	if _, err := PeekSubject("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
