package auth

import "time"

// Provider identifies how a user authenticates.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderLocal, ProviderGoogle:
		return true
	}
	return false
}

// User is a stored account record. Username and email are globally unique;
// uniqueness is enforced by the credential store, not by pre-checks here.
// PasswordHash is always a bcrypt hash, never plaintext. ProviderID is set
// only for Google-linked accounts.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Provider     Provider  `json:"auth_provider"`
	ProviderID   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated identity attached to a request. It is
// derived from a validated access token and passed explicitly to every
// operation that needs authorization; nothing reads it from ambient state.
type Principal struct {
	UserID   string
	Username string
	Provider Provider
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// Result is the outcome of a successful signup, login, federated login or
// token refresh.
type Result struct {
	UserID           string    `json:"userId"`
	Username         string    `json:"username"`
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
