package auth

import "context"

// Authorize permits the principal to act on a resource owned by ownerID.
// It requires an authenticated principal, verifies the owner still exists
// (a stale owner is a distinct failure from a mismatch) and then requires
// exact identity: the principal must be the owner. No role overrides.
//
// Every read or mutation of a user-owned resource runs this check before
// touching the data.
func (s *Service) Authorize(ctx context.Context, principal Principal, ownerID string) error {
	if !principal.Authenticated() {
		return ErrUnauthenticated
	}
	if _, err := s.users.Find(ctx, ownerID); err != nil {
		return err
	}
	if principal.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}
