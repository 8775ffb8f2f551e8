// Package dal is the tenant-scoped data-access layer from spec.md §4.5. A
// Factory binds a *pgxpool.Pool (or an in-flight transaction) to a resolved
// identity.Context's org id, and every subsequent query injects that org id
// so no caller can read or write across a tenant boundary. Grounded on the
// teacher's pkg/apikey/store.go raw-pgx CRUD shape (column-list constants,
// scanRow/scanRows helpers, methods on a pool-holding Store), generalized
// from the teacher's schema-per-tenant isolation (SET search_path) to a
// shared-schema, org_id-column model — spec.md §4.5 step 2 requires
// ownership-chain joins (Card → List → Board.orgId) that presume every
// tenant's rows live in the same tables.
package dal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardkeep/kernel/internal/apperr"
)

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx — the same
// seam internal/identity.DBTX uses, so DAL methods can run against a bare
// pool or inside an existing transaction without duplicating call sites.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx additionally supports commit/rollback, satisfied by pgx.Tx.
type Tx interface {
	DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

var _ DBTX = (*pgxpool.Pool)(nil)

// Factory builds org-scoped DAL handles bound to a connection pool.
type Factory struct {
	pool *pgxpool.Pool
}

func NewFactory(pool *pgxpool.Pool) *Factory {
	return &Factory{pool: pool}
}

// ForOrg returns a DAL bound to orgID, reading and writing through the pool.
// Every query issued by the returned DAL carries this org id (spec.md §8
// invariant: "the orgId used by every DAL query issued while handling R
// equals ctx.orgId resolved once at the start of R").
func (f *Factory) ForOrg(orgID uuid.UUID) *DAL {
	return &DAL{db: f.pool, orgID: orgID}
}

// DAL is a tenant-scoped handle. Zero value is not usable; construct via
// Factory.ForOrg or WithTx.
type DAL struct {
	db    DBTX
	orgID uuid.UUID
}

// OrgID is the tenant boundary this handle is scoped to.
func (d *DAL) OrgID() uuid.UUID { return d.orgID }

// WithTx runs fn with a DAL bound to the same org but issuing queries inside
// a serializable transaction, per spec.md §4.5 step 4 and §5's requirement
// that read-modify-write reorders run in one serializable transaction. The
// transaction commits on a nil return and rolls back otherwise.
func (d *DAL) WithTx(ctx context.Context, fn func(ctx context.Context, txd *DAL) error) error {
	pool, ok := d.db.(*pgxpool.Pool)
	if !ok {
		// Already inside a transaction; reuse it rather than nesting.
		return fn(ctx, d)
	}
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning serializable transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &DAL{db: tx, orgID: d.orgID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Priority is a Card's priority level.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// AuditAction is the mutation kind recorded in an AuditLog row.
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// setDifference returns the elements of want that are not present in have,
// used to implement spec.md §4.5 step 3's bulk-operation boundary check:
// reorders and other multi-id operations fetch the ids that legitimately
// belong to the board, diff them against the client-supplied ids, and fail
// atomically rather than partially applying the write.
func setDifference(want, have []uuid.UUID) []uuid.UUID {
	haveSet := make(map[uuid.UUID]struct{}, len(have))
	for _, id := range have {
		haveSet[id] = struct{}{}
	}
	var foreign []uuid.UUID
	for _, id := range want {
		if _, ok := haveSet[id]; !ok {
			foreign = append(foreign, id)
		}
	}
	return foreign
}

// errNotFound builds the NOT_FOUND error spec.md §4.5 step 2 requires for
// any id that doesn't chain to the bound org — deliberately indistinguishable
// from "this id simply doesn't exist", to avoid an existence oracle.
func errNotFound(entity string) error {
	return apperr.NotFoundf(entity + " not found or not in this organization")
}

func errForeignIDs(entity string) error {
	return apperr.Conflictf(entity + " contains ids outside this board")
}
