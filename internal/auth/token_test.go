package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestTokens(t *testing.T, opts ...TokenOption) *Tokens {
	t.Helper()
	tokens, err := NewTokens("access-secret", "refresh-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	return tokens
}

func TestNewTokensRejectsBadSecrets(t *testing.T) {
	if _, err := NewTokens("", "refresh"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewTokens("access", ""); err == nil {
		t.Fatal("expected error for empty refresh secret")
	}
	if _, err := NewTokens("shared", "shared"); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := newTestTokens(t)

	for _, kind := range []TokenKind{TokenKindAccess, TokenKindRefresh} {
		signed, exp, err := tokens.issue("user-42", kind)
		if err != nil {
			t.Fatalf("issue %s: %v", kind, err)
		}
		if !exp.After(time.Now()) {
			t.Fatalf("expected future expiry for %s token, got %v", kind, exp)
		}
		subject, err := tokens.Validate(signed, kind)
		if err != nil {
			t.Fatalf("Validate(%s): %v", kind, err)
		}
		if subject != "user-42" {
			t.Fatalf("unexpected subject: %s", subject)
		}
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	tokens := newTestTokens(t)

	access, _, err := tokens.IssueAccess("user-42")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, err := tokens.IssueRefresh("user-42")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if _, err := tokens.Validate(access, TokenKindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token validated as refresh: err=%v", err)
	}
	if _, err := tokens.Validate(refresh, TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token validated as access: err=%v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	current := time.Now()
	tokens := newTestTokens(t, WithTokenClock(func() time.Time { return current }))

	signed, _, err := tokens.IssueAccess("user-42")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	current = current.Add(defaultAccessTTL + time.Minute)
	if _, err := tokens.Validate(signed, TokenKindAccess); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenWrongKindClaim(t *testing.T) {
	tokens := newTestTokens(t)

	// Forge a token signed with the access secret but claiming to be a
	// refresh token. The signature verifies; the kind check must not.
	claims := TokenClaims{
		TokenType: string(TokenKindRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "user-42",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}

	if _, err := tokens.Validate(forged, TokenKindAccess); !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind, got %v", err)
	}
}

func TestValidateRejectsMalformedInput(t *testing.T) {
	tokens := newTestTokens(t)

	for _, token := range []string{"", "   ", "not-a-jwt", "a.b", "a.b.c.d", "!!!.###.$$$"} {
		if _, err := tokens.Validate(token, TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Validate(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestValidateRejectsWrongAlgorithm(t *testing.T) {
	tokens := newTestTokens(t)

	claims := jwt.RegisteredClaims{Subject: "user-42", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := tokens.Validate(unsigned, TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}
