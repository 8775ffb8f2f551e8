// Package identity resolves the tenant context — (userId, orgId, role) —
// for each request from a verified identity token, self-healing the local
// User and Membership rows on first contact per spec.md §4.3.
package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/apperr"
	"github.com/boardkeep/kernel/internal/rbac"
)

// Token is what a verified identity provider token yields, per spec.md §6's
// `auth()` contract.
type Token struct {
	ExternalUserID  string
	ExternalOrgID   string
	ExternalOrgRole string
}

// Profile is the identity provider's user-profile lookup response, per
// spec.md §6's `users.getUser` contract. Used once, on first-touch user
// provisioning.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
	Username  string
	AvatarURL string
}

// Verifier authenticates the bearer credential on an inbound request and
// returns the claims the identity provider attached to it. Implementations
// include OIDCVerifier (internal/identity/oidcverifier.go) and
// SessionVerifier (internal/identity/session.go).
type Verifier interface {
	Verify(ctx context.Context, bearerToken string) (Token, error)
}

// ProfileFetcher hydrates a user profile from the identity provider. Called
// at most once per user, on first-touch provisioning.
type ProfileFetcher interface {
	GetUser(ctx context.Context, externalUserID string) (Profile, error)
}

// Kind and Error are the shared apperr taxonomy (spec.md §7); a tenant
// resolution failure is always one of KindUnauthenticated or KindForbidden.
type Kind = apperr.Kind
type Error = apperr.Error

const (
	KindUnauthenticated = apperr.Unauthenticated
	KindForbidden       = apperr.Forbidden
)

func errUnauthenticated(msg string) error { return apperr.Unauthenticatedf(msg) }
func errForbidden(msg string) error       { return apperr.Forbiddenf(msg) }

// AsError extracts an *Error from err, if any.
func AsError(err error) (*Error, bool) { return apperr.As(err) }

// Context is the resolved tenant context for one request. It is expected to
// be memoized per request (spec.md §4.3 contract) and never re-derived mid
// request.
type Context struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   rbac.Role

	// MembershipKnown is false when no Organization row exists locally for
	// the token's org id; Role then defaults to MEMBER per spec.md §4.3
	// step 3, and downstream ownership joins are relied on to block access.
	MembershipKnown bool
}
