package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service coordinates signup, login, token refresh and federated login.
// All identity state travels in the issued tokens; the service keeps no
// per-request state and is safe for concurrent use.
type Service struct {
	users  UserStore
	tokens *Tokens
	google GoogleVerifier
	now    func() time.Time
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithGoogleVerifier enables federated login through Google.
func WithGoogleVerifier(v GoogleVerifier) ServiceOption {
	return func(s *Service) { s.google = v }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(users UserStore, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	s := &Service{
		users:  users,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Signup registers a local account and logs the new user in. Duplicate
// username or email surfaces as ErrDuplicateUsername/ErrDuplicateEmail
// straight from the store; there is no exists-then-create window. A
// failure after the record is created comes back as ErrPostSignupLogin so
// the caller knows the account exists.
func (s *Service) Signup(ctx context.Context, username, email, password string) (Result, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || password == "" {
		return Result{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Result{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderLocal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Result{}, err
	}

	result, err := s.issuePair(user)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPostSignupLogin, err)
	}
	return result, nil
}

// Login verifies local credentials. A missing user and a wrong password
// both come back as the same ErrInvalidCredentials; the response carries
// no signal about which check failed.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Result{}, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Result{}, ErrInvalidCredentials
	}
	return s.issuePair(user)
}

// Refresh validates a refresh token and issues a new access+refresh pair
// rooted at the current user record, so a deleted user cannot refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Result, error) {
	subject, err := s.tokens.Validate(refreshToken, TokenKindRefresh)
	if err != nil {
		return Result{}, err
	}
	user, err := s.users.Find(ctx, subject)
	if err != nil {
		return Result{}, err
	}
	return s.issuePair(user)
}

// GoogleLogin is the inbound payload for federated login. Exactly one of
// IDToken or AccessToken is expected; Email and Name are the caller's
// assertion of the signed-in Google account.
type GoogleLogin struct {
	IDToken     string
	AccessToken string
	Email       string
	Name        string
}

// LoginWithGoogle verifies a Google identity and creates or re-links the
// matching account. An existing account under a different provider is a
// conflict, never a silent merge.
func (s *Service) LoginWithGoogle(ctx context.Context, req GoogleLogin) (Result, error) {
	if s.google == nil {
		return Result{}, fmt.Errorf("%w: google login is not configured", ErrVerification)
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return Result{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	var (
		identity GoogleIdentity
		err      error
	)
	switch {
	case strings.TrimSpace(req.IDToken) != "":
		identity, err = s.google.VerifyIDToken(ctx, req.IDToken)
	case strings.TrimSpace(req.AccessToken) != "":
		// Reduced-assurance path: the access token is opaque, so the
		// identity comes from Google's userinfo endpoint rather than a
		// signature check.
		identity, err = s.google.VerifyAccessToken(ctx, req.AccessToken)
	default:
		return Result{}, fmt.Errorf("%w: no google token provided", ErrInvalidInput)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	if !strings.EqualFold(identity.Email, email) {
		return Result{}, ErrEmailMismatch
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Provider != ProviderGoogle {
			return Result{}, ErrProviderConflict
		}
		if err := s.users.LinkProvider(ctx, user.ID, ProviderGoogle, identity.Subject); err != nil {
			return Result{}, fmt.Errorf("link google account: %w", err)
		}
	case errors.Is(err, ErrNotFound):
		user, err = s.createGoogleUser(ctx, identity, req.Name)
		if err != nil {
			return Result{}, err
		}
	default:
		return Result{}, err
	}

	return s.issuePair(user)
}

// ValidateToken reports whether the bearer header carries a valid access
// token. It strips an optional "Bearer " prefix and never returns an
// error: any malformed input is simply false.
func (s *Service) ValidateToken(bearer string) bool {
	token := strings.TrimSpace(bearer)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	if token == "" {
		return false
	}
	_, err := s.tokens.Validate(token, TokenKindAccess)
	return err == nil
}

// AuthenticateAccess resolves an access token to a Principal backed by
// the current user record.
func (s *Service) AuthenticateAccess(ctx context.Context, token string) (Principal, error) {
	subject, err := s.tokens.Validate(token, TokenKindAccess)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.users.Find(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	return Principal{UserID: user.ID, Username: user.Username, Provider: user.Provider}, nil
}

func (s *Service) issuePair(user *User) (Result, error) {
	access, accessExp, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return Result{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		UserID:           user.ID,
		Username:         user.Username,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

const googleUserCreateAttempts = 5

func (s *Service) createGoogleUser(ctx context.Context, identity GoogleIdentity, assertedName string) (*User, error) {
	name := identity.Name
	if name == "" {
		name = assertedName
	}
	base := usernameFromName(name, identity.Email)

	// Google accounts have no local password; store a random credential
	// so the hash column is never empty and never matches a guess.
	hash, err := HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("hash generated credential: %w", err)
	}

	candidate := base
	for attempt := 1; ; attempt++ {
		// The existence probe only picks a likely-free name; the Create
		// below remains the sole arbiter of uniqueness.
		for {
			taken, err := s.users.ExistsByUsername(ctx, candidate)
			if err != nil {
				return nil, err
			}
			if !taken {
				break
			}
			candidate = fmt.Sprintf("%s%d", base, attempt)
			attempt++
		}

		user := &User{
			Username:     candidate,
			Email:        normalizeEmail(identity.Email),
			PasswordHash: hash,
			Provider:     ProviderGoogle,
			ProviderID:   identity.Subject,
		}
		err := s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, ErrDuplicateUsername) && attempt < googleUserCreateAttempts {
			candidate = fmt.Sprintf("%s%d", base, attempt)
			continue
		}
		return nil, err
	}
}

func usernameFromName(name, email string) string {
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
