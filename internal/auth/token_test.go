package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testIssuer(ttl time.Duration) *TokenIssuer {
	return NewTokenIssuer("test-secret-test-secret-test-secret!", "vendorhub", "vendorhub", ttl)
}

func testUser() User {
	return User{
		ID:        "019236a0-0000-7000-8000-000000000001",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Nguyen",
		Role:      RoleManager,
		IsActive:  true,
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := testIssuer(time.Hour)
	user := testUser()

	token, expiresAt, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Name != "Alice Nguyen" {
		t.Errorf("name = %q, want %q", claims.Name, "Alice Nguyen")
	}
	if claims.Role != string(RoleManager) {
		t.Errorf("role = %q, want %q", claims.Role, RoleManager)
	}
	if claims.ID == "" {
		t.Error("expected a jti claim")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := testIssuer(-time.Minute)

	token, _, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyExpiredAcceptsExpiredToken(t *testing.T) {
	issuer := testIssuer(-time.Minute)
	user := testUser()

	token, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := issuer.VerifyExpired(token)
	if err != nil {
		t.Fatalf("VerifyExpired error: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("subject = %q, want %q", claims.Subject, user.ID)
	}
}

func TestVerifyExpiredStillChecksIssuerAndAudience(t *testing.T) {
	token, _, err := testIssuer(-time.Minute).Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	wrongIssuer := NewTokenIssuer("test-secret-test-secret-test-secret!", "someone-else", "vendorhub", time.Hour)
	if _, err := wrongIssuer.VerifyExpired(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected issuer mismatch rejection, got %v", err)
	}

	wrongAudience := NewTokenIssuer("test-secret-test-secret-test-secret!", "vendorhub", "other-app", time.Hour)
	if _, err := wrongAudience.VerifyExpired(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected audience mismatch rejection, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := testIssuer(time.Hour).Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	other := NewTokenIssuer("a-completely-different-secret-value!", "vendorhub", "vendorhub", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
	if _, err := other.VerifyExpired(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret on refresh path, got %v", err)
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	issuer := testIssuer(time.Hour)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "vendorhub",
			Audience:  jwt.ClaimStrings{"vendorhub"},
			Subject:   "some-user",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := issuer.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
	if _, err := issuer.VerifyExpired(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none on refresh path, got %v", err)
	}
}

func TestNewRefreshTokenIsOpaqueAndUnique(t *testing.T) {
	first, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken error: %v", err)
	}
	second, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct refresh tokens")
	}
	if len(first) < 64 {
		t.Fatalf("refresh token too short: %d", len(first))
	}
	if HashRefreshToken(first) == HashRefreshToken(second) {
		t.Fatal("expected distinct hashes")
	}
	if len(HashRefreshToken(first)) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(HashRefreshToken(first)))
	}
}
