package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
)

// oidcClaims are the claims extracted from the provider's ID token. The
// org id/role claim names are fixed by the struct tags below (org_id,
// org_role).
type oidcClaims struct {
	Subject   string `json:"sub"`
	OrgID     string `json:"org_id"`
	OrgRole   string `json:"org_role"`
	Email     string `json:"email"`
	GivenName string `json:"given_name"`
	Family    string `json:"family_name"`
	Username  string `json:"preferred_username"`
	Picture   string `json:"picture"`
}

// OIDCVerifier validates OIDC ID tokens issued by an external identity
// provider, grounded on the teacher's OIDCAuthenticator. It also satisfies
// ProfileFetcher: most providers embed profile claims directly in the ID
// token, so Verify caches them by subject rather than making a second
// UserInfo round trip for first-touch user provisioning (spec.md §4.3 step
// 2, §6 `users.getUser`).
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier

	mu       sync.Mutex
	profiles map[string]Profile
}

// NewOIDCVerifier performs OIDC discovery against issuerURL and returns a
// Verifier bound to clientID as audience.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC provider %s: %w", issuerURL, err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		profiles: make(map[string]Profile),
	}, nil
}

// Verify implements Verifier.
func (v *OIDCVerifier) Verify(ctx context.Context, bearerToken string) (Token, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(bearerToken, "Bearer "))
	if raw == "" {
		return Token{}, errUnauthenticated("empty bearer token")
	}

	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Token{}, errUnauthenticated("invalid identity token")
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return Token{}, errUnauthenticated("malformed identity token claims")
	}
	if claims.Subject == "" {
		return Token{}, errUnauthenticated("identity token missing subject")
	}

	v.mu.Lock()
	v.profiles[claims.Subject] = Profile{
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.Family,
		Username:  claims.Username,
		AvatarURL: claims.Picture,
	}
	v.mu.Unlock()

	return Token{
		ExternalUserID:  claims.Subject,
		ExternalOrgID:   claims.OrgID,
		ExternalOrgRole: claims.OrgRole,
	}, nil
}

// GetUser implements ProfileFetcher by returning the profile claims cached
// at Verify time for externalUserID. Only ever called by the resolver
// immediately after a successful Verify in the same request, so the cache
// is always warm; a miss returns an empty Profile rather than an error,
// letting resolveUser fall back to its externalUserID-derived defaults.
func (v *OIDCVerifier) GetUser(_ context.Context, externalUserID string) (Profile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p := v.profiles[externalUserID]
	delete(v.profiles, externalUserID)
	return p, nil
}
