// Package seed provisions development data directly against the shared
// schema. Grounded on the teacher's seed.Run/RunDemo split (a minimal
// smoke-test tenant vs. a comprehensive demo tenant), adapted from the
// teacher's per-tenant-schema provisioning (tenant.Provisioner creating a
// new Postgres schema per call) to inserting rows into the shared tables
// this kernel uses, since org creation here has no in-app provisioning
// flow to call into (spec.md treats Organization as provided externally).
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/lexorank"
	"github.com/boardkeep/kernel/internal/rbac"
)

// DevExternalUserID is the external identity id seeded for local OIDC/session
// testing. Authenticating as this subject resolves, via identity.Resolver's
// self-healing provisioning, to the seeded membership below.
const DevExternalUserID = "dev|alice"

// Run provisions a single "acme" development org with one admin user, one
// board, and a few lists. It is idempotent: if the org already exists it
// logs and returns nil.
func Run(ctx context.Context, pool *pgxpool.Pool, databaseURL, migrationsDir string, logger *slog.Logger) error {
	var existing uuid.UUID
	err := pool.QueryRow(ctx, `SELECT id FROM organizations WHERE slug = $1`, "acme").Scan(&existing)
	if err == nil {
		logger.Info("seed: org 'acme' already exists, skipping", "org_id", existing)
		return nil
	}

	orgID := uuid.New()
	if _, err := pool.Exec(ctx,
		`INSERT INTO organizations (id, name, slug, plan) VALUES ($1, $2, $3, $4)`,
		orgID, "Acme Corp", "acme", "FREE",
	); err != nil {
		return fmt.Errorf("creating seed org: %w", err)
	}
	logger.Info("seed: created org", "org_id", orgID, "slug", "acme")

	userID := uuid.New()
	if _, err := pool.Exec(ctx,
		`INSERT INTO users (id, external_identity_id, email, display_name) VALUES ($1, $2, $3, $4)`,
		userID, DevExternalUserID, "alice@acme.example.com", "Alice Admin",
	); err != nil {
		return fmt.Errorf("creating seed user: %w", err)
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO memberships (user_id, org_id, role, is_active) VALUES ($1, $2, $3, true)`,
		userID, orgID, string(rbac.RoleAdmin),
	); err != nil {
		return fmt.Errorf("creating seed membership: %w", err)
	}
	logger.Info("seed: created user", "user_id", userID, "external_id", DevExternalUserID)

	factory := dal.NewFactory(pool)
	d := factory.ForOrg(orgID)

	board, err := d.Boards().Create(ctx, "Getting Started", "")
	if err != nil {
		return fmt.Errorf("creating seed board: %w", err)
	}
	logger.Info("seed: created board", "board_id", board.ID)

	for _, title := range []string{"To Do", "In Progress", "Done"} {
		tail, err := d.Lists().TailOrder(ctx, board.ID)
		if err != nil {
			return fmt.Errorf("computing list order: %w", err)
		}
		if _, err := d.Lists().Create(ctx, board.ID, title, lexorank.NextAfter(tail)); err != nil {
			return fmt.Errorf("creating seed list %q: %w", title, err)
		}
	}
	logger.Info("seed: created lists", "count", 3)

	logger.Info("seed: completed successfully", "org", "acme", "users", 1, "boards", 1)
	return nil
}
