package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardkeep/kernel/internal/rbac"
)

// User mirrors the User entity in spec.md §3.
type User struct {
	ID                 uuid.UUID
	ExternalIdentityID string
	Email              string
	DisplayName        string
	AvatarURL          string
}

// Membership mirrors the Membership entity in spec.md §3.
type Membership struct {
	UserID   uuid.UUID
	OrgID    uuid.UUID
	Role     rbac.Role
	IsActive bool
}

// Store is the persistence surface identity resolution needs. Implemented
// by *PostgresStore against the shared schema; tests supply a fake.
type Store interface {
	GetUserByExternalID(ctx context.Context, externalID string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	OrgExists(ctx context.Context, orgID uuid.UUID) (bool, error)
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (Membership, error)
	CreateMembership(ctx context.Context, m Membership) (Membership, error)
}

// ErrNoRows reports that a lookup found nothing. It is pgx.ErrNoRows itself,
// re-exported so callers outside this package can test for it without
// importing pgx.
var ErrNoRows = pgx.ErrNoRows

// PostgresStore implements Store against the shared `public` schema using
// a pgx connection pool (or an acquired *pgxpool.Conn for transactional
// callers — both satisfy the same query interface).
type PostgresStore struct {
	DB DBTX
}

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx, matching
// the db.DBTX seam the teacher repo uses to let callers pass either a pool
// or an in-flight transaction to the same query methods.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBTX = (*pgxpool.Pool)(nil)

func (s *PostgresStore) GetUserByExternalID(ctx context.Context, externalID string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx,
		`SELECT id, external_identity_id, email, display_name, COALESCE(avatar_url, '')
		 FROM users WHERE external_identity_id = $1`,
		externalID,
	).Scan(&u.ID, &u.ExternalIdentityID, &u.Email, &u.DisplayName, &u.AvatarURL)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	var out User
	err := s.DB.QueryRow(ctx,
		`INSERT INTO users (external_identity_id, email, display_name, avatar_url)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING id, external_identity_id, email, display_name, COALESCE(avatar_url, '')`,
		u.ExternalIdentityID, u.Email, u.DisplayName, u.AvatarURL,
	).Scan(&out.ID, &out.ExternalIdentityID, &out.Email, &out.DisplayName, &out.AvatarURL)
	if err != nil {
		return User{}, err
	}
	return out, nil
}

func (s *PostgresStore) OrgExists(ctx context.Context, orgID uuid.UUID) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1 AND deleted_at IS NULL)`,
		orgID,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (Membership, error) {
	var m Membership
	err := s.DB.QueryRow(ctx,
		`SELECT user_id, org_id, role, is_active FROM memberships WHERE user_id = $1 AND org_id = $2`,
		userID, orgID,
	).Scan(&m.UserID, &m.OrgID, &m.Role, &m.IsActive)
	if err != nil {
		return Membership{}, err
	}
	return m, nil
}

func (s *PostgresStore) CreateMembership(ctx context.Context, m Membership) (Membership, error) {
	var out Membership
	err := s.DB.QueryRow(ctx,
		`INSERT INTO memberships (user_id, org_id, role, is_active, joined_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING user_id, org_id, role, is_active`,
		m.UserID, m.OrgID, m.Role, m.IsActive,
	).Scan(&out.UserID, &out.OrgID, &out.Role, &out.IsActive)
	if err != nil {
		return Membership{}, err
	}
	return out, nil
}

// ErrUniqueViolation is a storage-agnostic sentinel a Store implementation
// may wrap a driver-specific duplicate-key error in, so the resolver's race
// handling (spec.md §4.3 step 2, §5) does not need to import pgconn, and
// tests can simulate the race without a real database.
var ErrUniqueViolation = errors.New("unique constraint violation")

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// failure (SQLSTATE 23505), or wraps ErrUniqueViolation — the
// concurrent-first-request race the self-healing insert path must recover
// from per spec.md §4.3 step 2 and §5.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, ErrUniqueViolation)
}
