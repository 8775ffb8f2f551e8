package dal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Organization mirrors the Organization entity in spec.md §3. It is created
// externally (by the identity provider's org-provisioning flow) — the DAL
// only reads it, to drive plan-limit enforcement.
type Organization struct {
	ID   uuid.UUID
	Name string
	Slug string
	Plan string // FREE or PRO, per spec.md §3 — see internal/plan.Tier
}

func (d *DAL) Organizations() *organizationsDAL { return &organizationsDAL{d} }

type organizationsDAL struct{ *DAL }

// Get returns the bound org's own row. Unlike every other DAL method this
// does not take an id parameter — the org is always d.orgID, never a
// caller-supplied value.
func (o *organizationsDAL) Get(ctx context.Context) (Organization, error) {
	var org Organization
	err := o.db.QueryRow(ctx,
		`SELECT id, name, slug, plan FROM organizations WHERE id = $1 AND deleted_at IS NULL`,
		o.orgID,
	).Scan(&org.ID, &org.Name, &org.Slug, &org.Plan)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, errNotFound("organization")
	}
	if err != nil {
		return Organization{}, fmt.Errorf("getting organization: %w", err)
	}
	return org, nil
}
