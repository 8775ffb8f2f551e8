package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/rbac"
)

// Resolver implements the algorithm in spec.md §4.3.
type Resolver struct {
	Store    Store
	Profiles ProfileFetcher
}

// Resolve derives a *Context from a verified identity token, self-healing
// the local User and Membership rows on first contact.
func (r *Resolver) Resolve(ctx context.Context, tok Token) (*Context, error) {
	if tok.ExternalUserID == "" || tok.ExternalOrgID == "" {
		return nil, errUnauthenticated("missing identity claims")
	}

	user, err := r.resolveUser(ctx, tok.ExternalUserID)
	if err != nil {
		return nil, err
	}

	orgID, err := uuid.Parse(tok.ExternalOrgID)
	if err != nil {
		return nil, errUnauthenticated("malformed organization id")
	}

	membership, known, err := r.resolveMembership(ctx, user.ID, orgID, tok.ExternalOrgRole)
	if err != nil {
		return nil, err
	}

	if known && !membership.IsActive {
		return nil, errForbidden("membership is inactive")
	}

	role := rbac.RoleMember
	if known {
		role = membership.Role
	}

	return &Context{
		UserID:          user.ID,
		OrgID:           orgID,
		Role:            role,
		MembershipKnown: known,
	}, nil
}

// resolveUser looks up the local User by external identity id, provisioning
// it on first contact (spec.md §4.3 step 2). A concurrent first request can
// race the insert; on a unique-constraint failure we re-read once, and only
// fail UNAUTHENTICATED if the row is still missing after that.
func (r *Resolver) resolveUser(ctx context.Context, externalUserID string) (User, error) {
	u, err := r.Store.GetUserByExternalID(ctx, externalUserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNoRows) {
		return User{}, fmt.Errorf("looking up user: %w", err)
	}

	profile, err := r.Profiles.GetUser(ctx, externalUserID)
	if err != nil {
		return User{}, fmt.Errorf("fetching profile from identity provider: %w", err)
	}

	email := profile.Email
	if email == "" {
		email = externalUserID + "@provisioned.local"
	}
	displayName := firstLastOrFallback(profile, externalUserID)

	created, err := r.Store.CreateUser(ctx, User{
		ExternalIdentityID: externalUserID,
		Email:              email,
		DisplayName:        displayName,
		AvatarURL:          profile.AvatarURL,
	})
	if err == nil {
		return created, nil
	}
	if !IsUniqueViolation(err) {
		return User{}, fmt.Errorf("creating user: %w", err)
	}

	// Concurrent first request won the insert race; re-read.
	u, reErr := r.Store.GetUserByExternalID(ctx, externalUserID)
	if reErr != nil {
		return User{}, errUnauthenticated("user provisioning failed")
	}
	return u, nil
}

func firstLastOrFallback(p Profile, externalUserID string) string {
	if p.FirstName != "" || p.LastName != "" {
		name := p.FirstName
		if p.LastName != "" {
			if name != "" {
				name += " "
			}
			name += p.LastName
		}
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return externalUserID
}

// resolveMembership looks up the Membership for (userID, orgID), creating
// it on first contact only when the referenced Organization actually
// exists (spec.md §4.3 step 3). known is false when no membership row
// exists and none was created (org not found locally) — callers then fall
// back to role MEMBER and rely on ownership joins to block cross-org
// access.
func (r *Resolver) resolveMembership(ctx context.Context, userID, orgID uuid.UUID, externalRole string) (Membership, bool, error) {
	m, err := r.Store.GetMembership(ctx, userID, orgID)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, ErrNoRows) {
		return Membership{}, false, fmt.Errorf("looking up membership: %w", err)
	}

	exists, err := r.Store.OrgExists(ctx, orgID)
	if err != nil {
		return Membership{}, false, fmt.Errorf("checking organization: %w", err)
	}
	if !exists {
		return Membership{}, false, nil
	}

	created, err := r.Store.CreateMembership(ctx, Membership{
		UserID:   userID,
		OrgID:    orgID,
		Role:     rbac.Normalize(externalRole),
		IsActive: true,
	})
	if err == nil {
		return created, true, nil
	}
	if !IsUniqueViolation(err) {
		return Membership{}, false, fmt.Errorf("creating membership: %w", err)
	}

	m, reErr := r.Store.GetMembership(ctx, userID, orgID)
	if reErr != nil {
		return Membership{}, false, fmt.Errorf("re-reading membership after race: %w", reErr)
	}
	return m, true, nil
}
