package auth

import "errors"

var (
	// Credential store failures.
	ErrNotFound          = errors.New("auth: user not found")
	ErrDuplicateUsername = errors.New("auth: username already taken")
	ErrDuplicateEmail    = errors.New("auth: email already registered")

	// Token failures.
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrExpiredToken   = errors.New("auth: token expired")
	ErrWrongTokenKind = errors.New("auth: wrong token kind")

	// InvalidCredentials deliberately covers both an unknown email and a
	// wrong password so a caller cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// Federated login failures.
	ErrEmailMismatch    = errors.New("auth: email does not match verified identity")
	ErrProviderConflict = errors.New("auth: account exists with a different auth provider")
	ErrVerification     = errors.New("auth: identity verification failed")

	// ErrPostSignupLogin means the account was created but issuing the
	// initial token pair failed. It is kept distinct so the client can
	// tell the user to log in manually instead of retrying signup.
	ErrPostSignupLogin = errors.New("auth: account created but automatic login failed")

	// Access guard failures.
	ErrUnauthenticated = errors.New("auth: authentication required")
	ErrForbidden       = errors.New("auth: access to this resource is forbidden")

	ErrInvalidInput = errors.New("auth: invalid input")
)
