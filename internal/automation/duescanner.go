package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardkeep/kernel/internal/events"
)

// DueSoonWindow is how far ahead of a card's due date CARD_DUE_SOON fires.
const DueSoonWindow = 24 * time.Hour

var epoch = time.Unix(0, 0)

type dueRow struct {
	orgID   uuid.UUID
	boardID uuid.UUID
	cardID  uuid.UUID
	title   string
	dueDate time.Time
}

// ScanDueCards publishes CARD_DUE_SOON for every card whose due date falls
// within the next DueSoonWindow, and CARD_OVERDUE for every card whose due
// date has already passed. It scans across every org's cards directly
// (rather than per-org, through dal.Factory) since there is no single bound
// org to scope a DAL handle to here — grounded on the teacher's
// pkg/roster/worker.go ScheduleTopUp, which iterates every tenant from one
// periodic call rather than requiring a caller to pick one.
//
// Firing is at-least-once, not exactly-once: a card due within the window
// is republished on every tick until its due date passes, and an overdue
// card is republished on every tick forever after. There is no
// already-notified tracking column, so automations and webhooks subscribed
// to these events must themselves tolerate duplicate fires (matching how
// every other automation trigger already treats re-delivery).
func ScanDueCards(ctx context.Context, pool *pgxpool.Pool, bus *events.Bus, logger *slog.Logger) error {
	now := time.Now()

	dueSoon, err := scanWindow(ctx, pool, now, now.Add(DueSoonWindow))
	if err != nil {
		return fmt.Errorf("scanning due-soon cards: %w", err)
	}
	for _, c := range dueSoon {
		bus.Publish(ctx, events.Envelope{
			Type: events.CardDueSoon, OrgID: c.orgID, BoardID: c.boardID, CardID: c.cardID,
			Context: map[string]any{"cardTitle": c.title, "dueDate": c.dueDate},
		})
	}

	overdue, err := scanWindow(ctx, pool, epoch, now)
	if err != nil {
		return fmt.Errorf("scanning overdue cards: %w", err)
	}
	for _, c := range overdue {
		bus.Publish(ctx, events.Envelope{
			Type: events.CardOverdue, OrgID: c.orgID, BoardID: c.boardID, CardID: c.cardID,
			Context: map[string]any{"cardTitle": c.title, "dueDate": c.dueDate},
		})
	}

	if len(dueSoon) > 0 || len(overdue) > 0 {
		logger.Info("due-date scan published events", "due_soon", len(dueSoon), "overdue", len(overdue))
	}
	return nil
}

func scanWindow(ctx context.Context, pool *pgxpool.Pool, from, to time.Time) ([]dueRow, error) {
	rows, err := pool.Query(ctx,
		`SELECT boards.org_id, boards.id, cards.id, cards.title, cards.due_date
		 FROM cards
		 JOIN lists ON lists.id = cards.list_id
		 JOIN boards ON boards.id = lists.board_id
		 WHERE cards.due_date IS NOT NULL AND cards.due_date >= $1 AND cards.due_date < $2`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dueRow
	for rows.Next() {
		var r dueRow
		if err := rows.Scan(&r.orgID, &r.boardID, &r.cardID, &r.title, &r.dueDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunDueScanLoop runs ScanDueCards periodically until ctx is cancelled.
func RunDueScanLoop(ctx context.Context, pool *pgxpool.Pool, bus *events.Bus, logger *slog.Logger, interval time.Duration) {
	logger.Info("due-date scan loop started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("due-date scan loop stopped")
			return
		case <-ticker.C:
			if err := ScanDueCards(ctx, pool, bus, logger); err != nil {
				logger.Error("due-date scan", "error", err)
			}
		}
	}
}
