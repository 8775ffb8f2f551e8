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

// RunDemo provisions the "acme-demo" org with a fuller data set: several
// members, a product board with realistic lists and cards, labels, a
// comment thread, checklist items, one automation, and one webhook. It is
// destructive: it drops the org (and everything scoped to it, via FK
// cascade) and recreates it, so repeated runs always produce the same
// fixture.
func RunDemo(ctx context.Context, pool *pgxpool.Pool, databaseURL, migrationsDir string, logger *slog.Logger) error {
	var existing uuid.UUID
	if err := pool.QueryRow(ctx, `SELECT id FROM organizations WHERE slug = $1`, "acme-demo").Scan(&existing); err == nil {
		logger.Info("seed-demo: dropping existing org 'acme-demo'", "org_id", existing)
		if _, err := pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, existing); err != nil {
			return fmt.Errorf("dropping existing demo org: %w", err)
		}
	}

	orgID := uuid.New()
	if _, err := pool.Exec(ctx,
		`INSERT INTO organizations (id, name, slug, plan) VALUES ($1, $2, $3, $4)`,
		orgID, "Acme Demo Co", "acme-demo", "PRO",
	); err != nil {
		return fmt.Errorf("creating demo org: %w", err)
	}
	logger.Info("seed-demo: provisioned org", "org_id", orgID, "slug", "acme-demo")

	type userSpec struct {
		extID, email, name, role string
	}
	userSpecs := []userSpec{
		{"demo|alice", "alice@acme-demo.example.com", "Alice Hartmann", string(rbac.RoleOwner)},
		{"demo|bob", "bob@acme-demo.example.com", "Bob Mitchell", string(rbac.RoleAdmin)},
		{"demo|chandra", "chandra@acme-demo.example.com", "Chandra Patel", string(rbac.RoleMember)},
		{"demo|diana", "diana@acme-demo.example.com", "Diana Krueger", string(rbac.RoleMember)},
		{"demo|enzo", "enzo@acme-demo.example.com", "Enzo Rossi", string(rbac.RoleGuest)},
	}

	userIDs := make([]uuid.UUID, len(userSpecs))
	for i, s := range userSpecs {
		if err := pool.QueryRow(ctx,
			`INSERT INTO users (id, external_identity_id, email, display_name) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (external_identity_id) DO UPDATE SET email = EXCLUDED.email, display_name = EXCLUDED.display_name
			 RETURNING id`,
			uuid.New(), s.extID, s.email, s.name,
		).Scan(&userIDs[i]); err != nil {
			return fmt.Errorf("creating demo user %q: %w", s.name, err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO memberships (user_id, org_id, role, is_active) VALUES ($1, $2, $3, true)`,
			userIDs[i], orgID, s.role,
		); err != nil {
			return fmt.Errorf("creating demo membership for %q: %w", s.name, err)
		}
	}
	logger.Info("seed-demo: created users", "count", len(userSpecs))

	factory := dal.NewFactory(pool)
	d := factory.ForOrg(orgID)

	board, err := d.Boards().Create(ctx, "Product Roadmap", "")
	if err != nil {
		return fmt.Errorf("creating demo board: %w", err)
	}

	listTitles := []string{"Backlog", "In Progress", "In Review", "Done"}
	listIDs := make([]uuid.UUID, len(listTitles))
	for i, title := range listTitles {
		tail, err := d.Lists().TailOrder(ctx, board.ID)
		if err != nil {
			return fmt.Errorf("computing list order: %w", err)
		}
		l, err := d.Lists().Create(ctx, board.ID, title, lexorank.NextAfter(tail))
		if err != nil {
			return fmt.Errorf("creating demo list %q: %w", title, err)
		}
		listIDs[i] = l.ID
	}
	logger.Info("seed-demo: created board and lists", "board_id", board.ID, "lists", len(listTitles))

	labelSpecs := []struct{ name, color string }{
		{"bug", "#e5484d"},
		{"feature", "#30a46c"},
		{"design", "#8e4ec6"},
		{"urgent", "#f76808"},
	}
	labelIDs := make([]uuid.UUID, len(labelSpecs))
	for i, ls := range labelSpecs {
		lbl, err := d.Labels().Create(ctx, ls.name, ls.color)
		if err != nil {
			return fmt.Errorf("creating demo label %q: %w", ls.name, err)
		}
		labelIDs[i] = lbl.ID
	}

	type cardSpec struct {
		list        int
		title, desc string
		priority    dal.Priority
		labels      []int
	}
	cardSpecs := []cardSpec{
		{0, "Design onboarding flow", "Sketch the first-run experience for new orgs.", dal.PriorityMedium, []int{2}},
		{0, "Evaluate SSO providers", "Compare Okta, Auth0 and a self-hosted OIDC option.", dal.PriorityLow, nil},
		{1, "Fix drag-and-drop jitter on Safari", "Cards snap back briefly before settling into the drop list.", dal.PriorityHigh, []int{0, 3}},
		{1, "Add card due-date reminders", "Automation action to post a comment when a due date is near.", dal.PriorityMedium, []int{1}},
		{2, "Webhook retry backoff review", "Confirm exponential backoff matches the delivery log UI.", dal.PriorityMedium, []int{1}},
		{3, "Ship keyboard shortcuts", "Shipped behind a feature flag last sprint.", dal.PriorityLow, []int{1}},
	}

	var firstCardID uuid.UUID
	for i, cs := range cardSpecs {
		tail, err := d.Cards().TailOrder(ctx, listIDs[cs.list])
		if err != nil {
			return fmt.Errorf("computing card order: %w", err)
		}
		c, err := d.Cards().Create(ctx, listIDs[cs.list], cs.title, cs.desc, cs.priority, lexorank.NextAfter(tail))
		if err != nil {
			return fmt.Errorf("creating demo card %q: %w", cs.title, err)
		}
		if i == 0 {
			firstCardID = c.ID
		}
		for _, li := range cs.labels {
			if _, err := d.Labels().Assign(ctx, c.ID, labelIDs[li]); err != nil {
				return fmt.Errorf("assigning label to card %q: %w", cs.title, err)
			}
		}
	}
	logger.Info("seed-demo: created cards", "count", len(cardSpecs))

	checklistID := uuid.New()
	var firstItemID uuid.UUID
	for i, text := range []string{"Write copy", "Review with design", "Ship to staging"} {
		item, err := d.ChecklistItems().Create(ctx, firstCardID, checklistID, text)
		if err != nil {
			return fmt.Errorf("creating demo checklist item %q: %w", text, err)
		}
		if i == 0 {
			firstItemID = item.ID
		}
	}
	if err := d.ChecklistItems().CompleteItem(ctx, firstCardID, firstItemID); err != nil {
		return fmt.Errorf("completing demo checklist item: %w", err)
	}

	comment, err := d.Comments().Create(ctx, firstCardID, userIDs[1], "I can take a first pass at the wireframes this week.", nil, false)
	if err != nil {
		return fmt.Errorf("creating demo comment: %w", err)
	}
	if _, err := d.Comments().Create(ctx, firstCardID, userIDs[0], "Sounds good, loop in Chandra for the copy review.", &comment.ID, false); err != nil {
		return fmt.Errorf("creating demo reply: %w", err)
	}
	if _, err := d.Reactions().Add(ctx, comment.ID, userIDs[0], "👍"); err != nil {
		return fmt.Errorf("creating demo reaction: %w", err)
	}

	if _, err := d.Automations().Create(ctx, &board.ID, "Notify on urgent label",
		[]byte(fmt.Sprintf(`{"type":"LABEL_ADDED","labelId":%q}`, labelIDs[3].String())),
		[]byte(`[]`),
		[]byte(`[{"type":"SEND_NOTIFICATION","notificationMessage":"Urgent card labeled"}]`),
	); err != nil {
		return fmt.Errorf("creating demo automation: %w", err)
	}

	if _, err := d.Webhooks().Create(ctx, "https://example.com/hooks/acme-demo", uuid.NewString()+uuid.NewString(),
		[]string{"card.created", "card.updated"},
	); err != nil {
		return fmt.Errorf("creating demo webhook: %w", err)
	}

	logger.Info("seed-demo: completed successfully",
		"org", "acme-demo", "users", len(userSpecs), "boards", 1,
		"cards", len(cardSpecs), "labels", len(labelSpecs),
	)
	return nil
}
