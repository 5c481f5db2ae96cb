package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "medimeet"

// TokenKind distinguishes short-lived access tokens from the longer-lived
// refresh tokens used solely to mint new pairs.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims are the JWT claims carried by every issued token. The
// token_type claim mirrors the signing secret so a mismatch is detectable
// even if the two secrets were ever misconfigured to the same value.
type TokenClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Tokens issues and validates the two token kinds. Each kind is signed
// with its own HS256 secret, so validating a token of one kind against
// the other always fails. Issuance and validation are pure computations
// over the secrets and the clock; no state is shared between requests.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption configures Tokens.
type TokenOption func(*Tokens)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.refreshTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(t *Tokens) {
		if fn != nil {
			t.now = fn
		}
	}
}

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 14 * 24 * time.Hour
)

// NewTokens constructs the token service. The secrets are process
// configuration; they must be non-empty and distinct.
func NewTokens(accessSecret, refreshSecret string, opts ...TokenOption) (*Tokens, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("auth: token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	t := &Tokens{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IssueAccess signs a short-lived access token for the user.
func (t *Tokens) IssueAccess(userID string) (string, time.Time, error) {
	return t.issue(userID, TokenKindAccess)
}

// IssueRefresh signs a refresh token for the user.
func (t *Tokens) IssueRefresh(userID string) (string, time.Time, error) {
	return t.issue(userID, TokenKindRefresh)
}

func (t *Tokens) issue(userID string, kind TokenKind) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("auth: userID is required")
	}
	now := t.now().UTC()
	exp := now.Add(t.ttl(kind))
	claims := TokenClaims{
		TokenType: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret(kind))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Validate verifies the signature with the secret matching kind, checks
// expiry against the current time and returns the subject user id.
// Malformed input never panics or escapes as an untyped error; every
// failure resolves to ErrInvalidToken, ErrExpiredToken or
// ErrWrongTokenKind.
func (t *Tokens) Validate(token string, kind TokenKind) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret(kind), nil
	}, jwt.WithTimeFunc(t.now), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenType != string(kind) {
		return "", ErrWrongTokenKind
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

func (t *Tokens) secret(kind TokenKind) []byte {
	if kind == TokenKindRefresh {
		return t.refreshSecret
	}
	return t.accessSecret
}

func (t *Tokens) ttl(kind TokenKind) time.Duration {
	if kind == TokenKindRefresh {
		return t.refreshTTL
	}
	return t.accessTTL
}
