package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for testing the resolver algorithm without
// a database.
type fakeStore struct {
	mu          sync.Mutex
	usersByExt  map[string]User
	orgs        map[uuid.UUID]bool
	memberships map[[2]uuid.UUID]Membership

	// raceUserInsert / raceMembershipInsert, if set, make the next
	// CreateUser / CreateMembership call simulate a concurrent-insert unique
	// violation instead of succeeding.
	raceUserInsert       bool
	raceMembershipInsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		usersByExt:  map[string]User{},
		orgs:        map[uuid.UUID]bool{},
		memberships: map[[2]uuid.UUID]Membership{},
	}
}

func (f *fakeStore) GetUserByExternalID(_ context.Context, externalID string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByExt[externalID]
	if !ok {
		return User{}, ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) CreateUser(_ context.Context, u User) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceUserInsert {
		f.raceUserInsert = false
		// Simulate a concurrent request having already inserted the row.
		f.usersByExt[u.ExternalIdentityID] = User{
			ID: uuid.New(), ExternalIdentityID: u.ExternalIdentityID,
			Email: u.Email, DisplayName: u.DisplayName,
		}
		return User{}, ErrUniqueViolation
	}
	u.ID = uuid.New()
	f.usersByExt[u.ExternalIdentityID] = u
	return u, nil
}

func (f *fakeStore) OrgExists(_ context.Context, orgID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgs[orgID], nil
}

func (f *fakeStore) GetMembership(_ context.Context, userID, orgID uuid.UUID) (Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[[2]uuid.UUID{userID, orgID}]
	if !ok {
		return Membership{}, ErrNoRows
	}
	return m, nil
}

func (f *fakeStore) CreateMembership(_ context.Context, m Membership) (Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uuid.UUID{m.UserID, m.OrgID}
	if f.raceMembershipInsert {
		f.raceMembershipInsert = false
		f.memberships[key] = m
		return Membership{}, ErrUniqueViolation
	}
	f.memberships[key] = m
	return m, nil
}

type fakeProfiles struct {
	profile Profile
	err     error
}

func (f fakeProfiles) GetUser(_ context.Context, _ string) (Profile, error) {
	return f.profile, f.err
}

func TestResolveMissingClaimsIsUnauthenticated(t *testing.T) {
	r := &Resolver{Store: newFakeStore(), Profiles: fakeProfiles{}}
	_, err := r.Resolve(context.Background(), Token{})
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnauthenticated, e.Kind)
}

func TestResolveProvisionsNewUserAndMembership(t *testing.T) {
	store := newFakeStore()
	orgID := uuid.New()
	store.orgs[orgID] = true

	r := &Resolver{
		Store:    store,
		Profiles: fakeProfiles{profile: Profile{Email: "a@b.com", FirstName: "Ada", LastName: "Lovelace"}},
	}

	tc, err := r.Resolve(context.Background(), Token{
		ExternalUserID: "ext-1", ExternalOrgID: orgID.String(), ExternalOrgRole: "org:admin",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tc.UserID)
	assert.Equal(t, orgID, tc.OrgID)
	assert.True(t, tc.MembershipKnown)
	assert.EqualValues(t, "ADMIN", tc.Role)
}

func TestResolveUnknownOrgDefaultsToMember(t *testing.T) {
	store := newFakeStore()
	r := &Resolver{Store: store, Profiles: fakeProfiles{profile: Profile{Email: "a@b.com"}}}

	unknownOrg := uuid.New()
	tc, err := r.Resolve(context.Background(), Token{
		ExternalUserID: "ext-2", ExternalOrgID: unknownOrg.String(), ExternalOrgRole: "org:owner",
	})
	require.NoError(t, err)
	assert.False(t, tc.MembershipKnown)
	assert.EqualValues(t, "MEMBER", tc.Role)
}

func TestResolveInactiveMembershipIsForbidden(t *testing.T) {
	store := newFakeStore()
	orgID := uuid.New()
	store.orgs[orgID] = true
	userID := uuid.New()
	store.usersByExt["ext-3"] = User{ID: userID, ExternalIdentityID: "ext-3", Email: "x@y.com"}
	store.memberships[[2]uuid.UUID{userID, orgID}] = Membership{UserID: userID, OrgID: orgID, Role: "MEMBER", IsActive: false}

	r := &Resolver{Store: store, Profiles: fakeProfiles{}}
	_, err := r.Resolve(context.Background(), Token{ExternalUserID: "ext-3", ExternalOrgID: orgID.String()})
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindForbidden, e.Kind)
}

func TestResolveLocalRoleIsAuthoritativeOverToken(t *testing.T) {
	store := newFakeStore()
	orgID := uuid.New()
	store.orgs[orgID] = true
	userID := uuid.New()
	store.usersByExt["ext-4"] = User{ID: userID, ExternalIdentityID: "ext-4", Email: "x@y.com"}
	store.memberships[[2]uuid.UUID{userID, orgID}] = Membership{UserID: userID, OrgID: orgID, Role: "GUEST", IsActive: true}

	r := &Resolver{Store: store, Profiles: fakeProfiles{}}
	// Token claims OWNER, but the local membership row says GUEST — local wins.
	tc, err := r.Resolve(context.Background(), Token{ExternalUserID: "ext-4", ExternalOrgID: orgID.String(), ExternalOrgRole: "owner"})
	require.NoError(t, err)
	assert.EqualValues(t, "GUEST", tc.Role)
}

func TestResolveRecoversFromConcurrentUserInsertRace(t *testing.T) {
	store := newFakeStore()
	store.raceUserInsert = true
	orgID := uuid.New()
	store.orgs[orgID] = true

	r := &Resolver{Store: store, Profiles: fakeProfiles{profile: Profile{Email: "race@b.com"}}}
	tc, err := r.Resolve(context.Background(), Token{ExternalUserID: "ext-race", ExternalOrgID: orgID.String()})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tc.UserID)
}

func TestResolveRecoversFromConcurrentMembershipInsertRace(t *testing.T) {
	store := newFakeStore()
	orgID := uuid.New()
	store.orgs[orgID] = true
	store.raceMembershipInsert = true

	r := &Resolver{Store: store, Profiles: fakeProfiles{profile: Profile{Email: "race2@b.com"}}}
	tc, err := r.Resolve(context.Background(), Token{ExternalUserID: "ext-race2", ExternalOrgID: orgID.String(), ExternalOrgRole: "admin"})
	require.NoError(t, err)
	assert.True(t, tc.MembershipKnown)
}
