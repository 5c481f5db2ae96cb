package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/iprashant14/medimeet-backend/internal/ids"
)

// fakeUserStore enforces the same atomic uniqueness contract as the real
// stores: duplicates are detected inside Create, under one lock.
type fakeUserStore struct {
	mu   sync.Mutex
	byID map[string]*User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: make(map[string]*User)}
}

func (s *fakeUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeUserStore) LinkProvider(ctx context.Context, userID string, provider Provider, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.Provider = provider
	u.ProviderID = providerID
	return nil
}

func (s *fakeUserStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// stubGoogle returns canned identities for federated login tests.
type stubGoogle struct {
	idIdentity     GoogleIdentity
	idErr          error
	accessIdentity GoogleIdentity
	accessErr      error
}

func (g *stubGoogle) VerifyIDToken(ctx context.Context, raw string) (GoogleIdentity, error) {
	return g.idIdentity, g.idErr
}

func (g *stubGoogle) VerifyAccessToken(ctx context.Context, raw string) (GoogleIdentity, error) {
	return g.accessIdentity, g.accessErr
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *fakeUserStore) {
	t.Helper()
	store := newFakeUserStore()
	svc, err := NewService(store, newTestTokens(t), opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestSignupIssuesTokensForNewUser(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Signup(context.Background(), "alice", "a@x.com", "p1")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.UserID == "" || res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("incomplete result: %+v", res)
	}

	subject, err := svc.tokens.Validate(res.AccessToken, TokenKindAccess)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if subject != res.UserID {
		t.Fatalf("access token subject %q does not match user id %q", subject, res.UserID)
	}
	subject, err = svc.tokens.Validate(res.RefreshToken, TokenKindRefresh)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if subject != res.UserID {
		t.Fatalf("refresh token subject %q does not match user id %q", subject, res.UserID)
	}
}

func TestSignupDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "a@x.com", "p1"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "bob", "a@x.com", "p2"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if _, err := svc.Signup(ctx, "alice", "b@x.com", "p2"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestSignupValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "", "a@x.com", "p1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing username, got %v", err)
	}
	if _, err := svc.Signup(ctx, "alice", "not-an-email", "p1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad email, got %v", err)
	}
	if _, err := svc.Signup(ctx, "alice", "a@x.com", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "a@x.com", "correct"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "a@x.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@x.com", "whatever")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("failure messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, "alice", "a@x.com", "p1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	login, err := svc.Login(ctx, "A@X.com", "p1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.UserID != signup.UserID {
		t.Fatalf("login user %q does not match signup user %q", login.UserID, signup.UserID)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, "alice", "a@x.com", "p1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, signup.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.UserID != signup.UserID {
		t.Fatalf("refresh changed user: %q vs %q", refreshed.UserID, signup.UserID)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatalf("incomplete refreshed pair: %+v", refreshed)
	}

	// An access token is not accepted in place of a refresh token.
	if _, err := svc.Refresh(ctx, signup.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for access token, got %v", err)
	}
}

func TestRefreshFailsForDeletedUser(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, "alice", "a@x.com", "p1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	store.delete(signup.UserID)

	if _, err := svc.Refresh(ctx, signup.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateTokenNeverErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, "alice", "a@x.com", "p1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if !svc.ValidateToken(signup.AccessToken) {
		t.Fatal("bare access token should validate")
	}
	if !svc.ValidateToken("Bearer " + signup.AccessToken) {
		t.Fatal("Bearer-prefixed access token should validate")
	}
	for _, bad := range []string{"", "Bearer", "Bearer ", "garbage", "Bearer garbage", signup.RefreshToken} {
		if svc.ValidateToken(bad) {
			t.Fatalf("ValidateToken(%q) should be false", bad)
		}
	}
}

func TestGoogleLoginCreatesUser(t *testing.T) {
	google := &stubGoogle{
		idIdentity: GoogleIdentity{Subject: "goog-123", Email: "carol@x.com", Name: "Carol Q. Smith"},
	}
	svc, store := newTestService(t, WithGoogleVerifier(google))
	ctx := context.Background()

	res, err := svc.LoginWithGoogle(ctx, GoogleLogin{IDToken: "raw-id-token", Email: "carol@x.com"})
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("incomplete result: %+v", res)
	}

	user, err := store.Find(ctx, res.UserID)
	if err != nil {
		t.Fatalf("find created user: %v", err)
	}
	if user.Provider != ProviderGoogle {
		t.Fatalf("unexpected provider: %s", user.Provider)
	}
	if user.ProviderID != "goog-123" {
		t.Fatalf("unexpected provider id: %s", user.ProviderID)
	}
	if user.Username != "carolqsmith" {
		t.Fatalf("unexpected generated username: %s", user.Username)
	}
	if user.PasswordHash == "" {
		t.Fatal("google user must still carry a password hash")
	}
}

func TestGoogleLoginGeneratesUniqueUsername(t *testing.T) {
	google := &stubGoogle{
		idIdentity: GoogleIdentity{Subject: "goog-456", Email: "carol2@x.com", Name: "carol"},
	}
	svc, store := newTestService(t, WithGoogleVerifier(google))
	ctx := context.Background()

	if err := store.Create(ctx, &User{Username: "carol", Email: "other@x.com", PasswordHash: "x", Provider: ProviderLocal}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	res, err := svc.LoginWithGoogle(ctx, GoogleLogin{IDToken: "raw-id-token", Email: "carol2@x.com"})
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	user, err := store.Find(ctx, res.UserID)
	if err != nil {
		t.Fatalf("find created user: %v", err)
	}
	if user.Username == "carol" || !strings.HasPrefix(user.Username, "carol") {
		t.Fatalf("expected suffixed username, got %s", user.Username)
	}
}

func TestGoogleLoginProviderConflict(t *testing.T) {
	google := &stubGoogle{
		idIdentity: GoogleIdentity{Subject: "goog-123", Email: "a@x.com", Name: "Alice"},
	}
	svc, _ := newTestService(t, WithGoogleVerifier(google))
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "a@x.com", "p1"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, err := svc.LoginWithGoogle(ctx, GoogleLogin{IDToken: "raw-id-token", Email: "a@x.com"})
	if !errors.Is(err, ErrProviderConflict) {
		t.Fatalf("expected ErrProviderConflict, got %v", err)
	}
}

func TestGoogleLoginEmailMismatch(t *testing.T) {
	google := &stubGoogle{
		idIdentity: GoogleIdentity{Subject: "goog-123", Email: "real@x.com", Name: "Mallory"},
	}
	svc, _ := newTestService(t, WithGoogleVerifier(google))

	_, err := svc.LoginWithGoogle(context.Background(), GoogleLogin{IDToken: "raw-id-token", Email: "claimed@x.com"})
	if !errors.Is(err, ErrEmailMismatch) {
		t.Fatalf("expected ErrEmailMismatch, got %v", err)
	}
}

func TestGoogleLoginVerificationFailure(t *testing.T) {
	google := &stubGoogle{idErr: fmt.Errorf("upstream says no")}
	svc, _ := newTestService(t, WithGoogleVerifier(google))

	_, err := svc.LoginWithGoogle(context.Background(), GoogleLogin{IDToken: "raw-id-token", Email: "a@x.com"})
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
}

func TestGoogleLoginAccessTokenPath(t *testing.T) {
	google := &stubGoogle{
		accessIdentity: GoogleIdentity{Subject: "goog-789", Email: "dave@x.com", Name: "Dave"},
	}
	svc, _ := newTestService(t, WithGoogleVerifier(google))

	res, err := svc.LoginWithGoogle(context.Background(), GoogleLogin{AccessToken: "opaque", Email: "dave@x.com", Name: "Dave"})
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	if res.UserID == "" {
		t.Fatalf("expected created user, got %+v", res)
	}

	// Relinking on a later login with the same account succeeds.
	if _, err := svc.LoginWithGoogle(context.Background(), GoogleLogin{AccessToken: "opaque", Email: "dave@x.com"}); err != nil {
		t.Fatalf("second google login: %v", err)
	}
}

func TestGoogleLoginRequiresToken(t *testing.T) {
	svc, _ := newTestService(t, WithGoogleVerifier(&stubGoogle{}))

	_, err := svc.LoginWithGoogle(context.Background(), GoogleLogin{Email: "a@x.com"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGoogleLoginDisabledWithoutVerifier(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.LoginWithGoogle(context.Background(), GoogleLogin{IDToken: "raw", Email: "a@x.com"})
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
}
