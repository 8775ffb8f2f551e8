package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// sessionClaims are the claims a self-issued session token carries, mirroring
// the shape the identity provider's opaque token is expected to resolve to
// (spec.md §6 `auth()` contract), for deployments that front the kernel with
// a lightweight HMAC session rather than a full OIDC provider.
type sessionClaims struct {
	ExternalUserID  string `json:"ext_user_id"`
	ExternalOrgID   string `json:"ext_org_id"`
	ExternalOrgRole string `json:"ext_org_role"`
	Email           string `json:"email,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
}

// SessionVerifier validates self-issued HMAC-signed session tokens. Grounded
// on the teacher's SessionManager (HS256 via go-jose), generalized from a
// fixed claim shape to the identity-provider Token contract.
type SessionVerifier struct {
	signingKey []byte
	issuer     string
}

// NewSessionVerifier creates a SessionVerifier. secret must be at least 32
// bytes, matching the teacher's minimum HMAC key size.
func NewSessionVerifier(secret, issuer string) (*SessionVerifier, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}
	return &SessionVerifier{signingKey: []byte(secret), issuer: issuer}, nil
}

// Issue creates a signed session token for the given claims, for a
// local-login path that issues its own session tokens instead of delegating
// to an external OIDC provider. Nothing in this module calls it.
func (v *SessionVerifier) Issue(tok Token, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: v.signingKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}

	now := time.Now()
	registered := jwt.Claims{
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(ttl)),
		Issuer:   v.issuer,
	}
	claims := sessionClaims{
		ExternalUserID:  tok.ExternalUserID,
		ExternalOrgID:   tok.ExternalOrgID,
		ExternalOrgRole: tok.ExternalOrgRole,
	}

	return jwt.Signed(signer).Claims(registered).Claims(claims).Serialize()
}

// Verify implements Verifier.
func (v *SessionVerifier) Verify(_ context.Context, bearerToken string) (Token, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(bearerToken, "Bearer "))
	if raw == "" {
		return Token{}, errUnauthenticated("empty bearer token")
	}

	parsed, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Token{}, errUnauthenticated("malformed session token")
	}

	var registered jwt.Claims
	var claims sessionClaims
	if err := parsed.Claims(v.signingKey, &registered, &claims); err != nil {
		return Token{}, errUnauthenticated("invalid session token signature")
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{Issuer: v.issuer}, 5*time.Second); err != nil {
		return Token{}, errUnauthenticated("session token expired or invalid")
	}

	return Token{
		ExternalUserID:  claims.ExternalUserID,
		ExternalOrgID:   claims.ExternalOrgID,
		ExternalOrgRole: claims.ExternalOrgRole,
	}, nil
}

// GetUser implements ProfileFetcher for deployments using a self-issued
// session token instead of OIDC: Issue carries no profile claims today, so
// this always reports an empty Profile and resolveUser falls back to its
// externalUserID-derived defaults.
func (v *SessionVerifier) GetUser(_ context.Context, _ string) (Profile, error) {
	return Profile{}, nil
}
