package dal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/boardkeep/kernel/internal/apperr"
	"github.com/boardkeep/kernel/internal/events"
)

// Label mirrors the Label entity in spec.md §3.
type Label struct {
	ID    uuid.UUID
	OrgID uuid.UUID
	Name  string
	Color string
}

func scanLabel(row pgx.Row) (Label, error) {
	var l Label
	err := row.Scan(&l.ID, &l.OrgID, &l.Name, &l.Color)
	return l, err
}

func (d *DAL) Labels() *labelsDAL { return &labelsDAL{d} }

type labelsDAL struct{ *DAL }

func (l *labelsDAL) List(ctx context.Context) ([]Label, error) {
	rows, err := l.db.Query(ctx,
		`SELECT id, org_id, name, color FROM labels WHERE org_id = $1 ORDER BY name ASC`, l.orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	defer rows.Close()

	var out []Label
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		out = append(out, label)
	}
	return out, rows.Err()
}

func (l *labelsDAL) Create(ctx context.Context, name, color string) (Label, error) {
	label, err := scanLabel(l.db.QueryRow(ctx,
		`INSERT INTO labels (org_id, name, color) VALUES ($1, $2, $3) RETURNING id, org_id, name, color`,
		l.orgID, name, color,
	))
	if isUniqueViolation(err) {
		return Label{}, errLabelExists
	}
	if err != nil {
		return Label{}, fmt.Errorf("creating label: %w", err)
	}
	return label, nil
}

// Assign attaches labelID to cardID, verifying the card chains to this org
// and the label belongs to this org. Idempotent: assigning an
// already-assigned label succeeds without error rather than reporting a
// conflict, since re-applying a label is not meaningfully destructive.
// Returns a LABEL_ADDED envelope on a fresh assignment, nil on a no-op.
func (l *labelsDAL) Assign(ctx context.Context, cardID, labelID uuid.UUID) (*events.Envelope, error) {
	cards := l.DAL.Cards()
	card, boardID, err := cards.cardChain(ctx, cardID)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM labels WHERE id = $1 AND org_id = $2)`,
		labelID, l.orgID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("verifying label ownership: %w", err)
	}
	if !exists {
		return nil, errNotFound("label")
	}

	tag, err := l.db.Exec(ctx,
		`INSERT INTO card_labels (card_id, label_id) VALUES ($1, $2) ON CONFLICT (card_id, label_id) DO NOTHING`,
		cardID, labelID,
	)
	if err != nil {
		return nil, fmt.Errorf("assigning label: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return &events.Envelope{
		Type: events.LabelAdded, OrgID: l.orgID, BoardID: boardID, CardID: cardID,
		Context: map[string]any{"labelId": labelID, "cardTitle": card.Title},
	}, nil
}

func (l *labelsDAL) Unassign(ctx context.Context, cardID, labelID uuid.UUID) error {
	if _, _, err := l.DAL.Cards().cardChain(ctx, cardID); err != nil {
		return err
	}
	if _, err := l.db.Exec(ctx, `DELETE FROM card_labels WHERE card_id = $1 AND label_id = $2`, cardID, labelID); err != nil {
		return fmt.Errorf("unassigning label: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var errLabelExists = apperr.Conflictf("label with that name already exists")
