package dal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ChecklistItem is a supplemented entity (spec.md §4.7's COMPLETE_CHECKLIST
// action references checklists, but §3's data model does not define one —
// this restores the minimal shape the original system's checklist feature
// needs). Items are grouped by ChecklistID, an opaque id scoped to a card.
type ChecklistItem struct {
	ID          uuid.UUID
	CardID      uuid.UUID
	ChecklistID uuid.UUID
	Text        string
	IsComplete  bool
}

func (d *DAL) ChecklistItems() *checklistItemsDAL { return &checklistItemsDAL{d} }

type checklistItemsDAL struct{ *DAL }

func (c *checklistItemsDAL) List(ctx context.Context, cardID uuid.UUID) ([]ChecklistItem, error) {
	if _, _, err := c.DAL.Cards().cardChain(ctx, cardID); err != nil {
		return nil, err
	}
	rows, err := c.db.Query(ctx,
		`SELECT id, card_id, checklist_id, text, is_complete FROM checklist_items
		 WHERE card_id = $1 ORDER BY id ASC`, cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing checklist items: %w", err)
	}
	defer rows.Close()

	var out []ChecklistItem
	for rows.Next() {
		var it ChecklistItem
		if err := rows.Scan(&it.ID, &it.CardID, &it.ChecklistID, &it.Text, &it.IsComplete); err != nil {
			return nil, fmt.Errorf("scanning checklist item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (c *checklistItemsDAL) Create(ctx context.Context, cardID, checklistID uuid.UUID, text string) (ChecklistItem, error) {
	if _, _, err := c.DAL.Cards().cardChain(ctx, cardID); err != nil {
		return ChecklistItem{}, err
	}
	var it ChecklistItem
	err := c.db.QueryRow(ctx,
		`INSERT INTO checklist_items (card_id, checklist_id, text, is_complete)
		 VALUES ($1, $2, $3, false) RETURNING id, card_id, checklist_id, text, is_complete`,
		cardID, checklistID, text,
	).Scan(&it.ID, &it.CardID, &it.ChecklistID, &it.Text, &it.IsComplete)
	if err != nil {
		return ChecklistItem{}, fmt.Errorf("creating checklist item: %w", err)
	}
	return it, nil
}

// CompleteItem marks a single item done, verifying it chains to cardID.
func (c *checklistItemsDAL) CompleteItem(ctx context.Context, cardID, itemID uuid.UUID) error {
	tag, err := c.db.Exec(ctx,
		`UPDATE checklist_items SET is_complete = true WHERE id = $1 AND card_id = $2`, itemID, cardID,
	)
	if err != nil {
		return fmt.Errorf("completing checklist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("checklist item")
	}
	return nil
}

// CompleteChecklist marks every item in checklistID on cardID done.
func (c *checklistItemsDAL) CompleteChecklist(ctx context.Context, cardID, checklistID uuid.UUID) error {
	_, err := c.db.Exec(ctx,
		`UPDATE checklist_items SET is_complete = true WHERE card_id = $1 AND checklist_id = $2`,
		cardID, checklistID,
	)
	if err != nil {
		return fmt.Errorf("completing checklist: %w", err)
	}
	return nil
}
