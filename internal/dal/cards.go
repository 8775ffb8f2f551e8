package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boardkeep/kernel/internal/events"
)

// Card mirrors the Card entity in spec.md §3.
type Card struct {
	ID             uuid.UUID
	ListID         uuid.UUID
	Title          string
	Description    string
	Priority       Priority
	DueDate        *time.Time
	AssigneeUserID *uuid.UUID
	Order          string
	CreatedAt      time.Time
}

const cardColumns = `id, list_id, title, description, priority, due_date, assignee_user_id, "order", created_at`

func scanCard(row pgx.Row) (Card, error) {
	var c Card
	err := row.Scan(&c.ID, &c.ListID, &c.Title, &c.Description, &c.Priority,
		&c.DueDate, &c.AssigneeUserID, &c.Order, &c.CreatedAt)
	return c, err
}

func (d *DAL) Cards() *cardsDAL { return &cardsDAL{d} }

type cardsDAL struct{ *DAL }

// cardChain verifies id chains Card → List → Board to the bound org,
// returning the card and its board id. Any mismatch — missing row or a
// board in a different org — is indistinguishable NOT_FOUND (spec.md §4.5
// step 2: never FORBIDDEN, to avoid an existence oracle).
func (c *cardsDAL) cardChain(ctx context.Context, id uuid.UUID) (Card, uuid.UUID, error) {
	var card Card
	var boardID uuid.UUID
	err := c.db.QueryRow(ctx,
		`SELECT cards.id, cards.list_id, cards.title, cards.description, cards.priority,
		        cards.due_date, cards.assignee_user_id, cards."order", cards.created_at,
		        lists.board_id
		 FROM cards
		 JOIN lists ON lists.id = cards.list_id
		 JOIN boards ON boards.id = lists.board_id
		 WHERE cards.id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL`,
		id, c.orgID,
	).Scan(&card.ID, &card.ListID, &card.Title, &card.Description, &card.Priority,
		&card.DueDate, &card.AssigneeUserID, &card.Order, &card.CreatedAt, &boardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Card{}, uuid.Nil, errNotFound("card")
	}
	if err != nil {
		return Card{}, uuid.Nil, fmt.Errorf("verifying card ownership: %w", err)
	}
	return card, boardID, nil
}

// FindUnique implements cards.findUnique.
func (c *cardsDAL) FindUnique(ctx context.Context, id uuid.UUID) (Card, error) {
	card, _, err := c.cardChain(ctx, id)
	return card, err
}

// Create inserts a card under listID after verifying the list chains to the
// bound org.
func (c *cardsDAL) Create(ctx context.Context, listID uuid.UUID, title, description string, priority Priority, order string) (Card, error) {
	card, err := scanCard(c.db.QueryRow(ctx,
		`INSERT INTO cards (list_id, title, description, priority, "order")
		 SELECT $1, $2, $3, $4, $5
		 FROM lists JOIN boards ON boards.id = lists.board_id
		 WHERE lists.id = $1 AND boards.org_id = $6 AND boards.deleted_at IS NULL
		 RETURNING `+cardColumns,
		listID, title, description, priority, order, c.orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Card{}, errNotFound("list")
	}
	if err != nil {
		return Card{}, fmt.Errorf("creating card: %w", err)
	}
	return card, nil
}

// CardUpdate is a partial update; nil fields are left unchanged.
type CardUpdate struct {
	Title          *string
	Description    *string
	Priority       *Priority
	DueDate        **time.Time
	AssigneeUserID **uuid.UUID
}

// Update applies patch to card id, returning the updated row plus any
// domain events the change should emit (PRIORITY_CHANGED, MEMBER_ASSIGNED).
func (c *cardsDAL) Update(ctx context.Context, id uuid.UUID, patch CardUpdate) (Card, []events.Envelope, error) {
	before, boardID, err := c.cardChain(ctx, id)
	if err != nil {
		return Card{}, nil, err
	}

	title, desc, prio := before.Title, before.Description, before.Priority
	due, assignee := before.DueDate, before.AssigneeUserID
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Description != nil {
		desc = *patch.Description
	}
	if patch.Priority != nil {
		prio = *patch.Priority
	}
	if patch.DueDate != nil {
		due = *patch.DueDate
	}
	if patch.AssigneeUserID != nil {
		assignee = *patch.AssigneeUserID
	}

	after, err := scanCard(c.db.QueryRow(ctx,
		`UPDATE cards SET title = $1, description = $2, priority = $3, due_date = $4, assignee_user_id = $5
		 WHERE id = $6 RETURNING `+cardColumns,
		title, desc, prio, due, assignee, id,
	))
	if err != nil {
		return Card{}, nil, fmt.Errorf("updating card: %w", err)
	}

	var envs []events.Envelope
	if patch.Priority != nil && before.Priority != after.Priority {
		envs = append(envs, events.Envelope{
			Type: events.PriorityChanged, OrgID: c.orgID, BoardID: boardID, CardID: id,
			Context: map[string]any{"cardTitle": after.Title, "from": before.Priority, "to": after.Priority},
		})
	}
	if patch.AssigneeUserID != nil && !sameAssignee(before.AssigneeUserID, after.AssigneeUserID) {
		// Open question (spec.md §9): assignee clearing (assigneeId -> nil)
		// still emits MEMBER_ASSIGNED here.
		envs = append(envs, events.Envelope{
			Type: events.MemberAssigned, OrgID: c.orgID, BoardID: boardID, CardID: id,
			Context: map[string]any{"cardTitle": after.Title, "assigneeUserId": after.AssigneeUserID},
		})
	}
	return after, envs, nil
}

func sameAssignee(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (c *cardsDAL) Delete(ctx context.Context, id uuid.UUID) (Card, error) {
	card, _, err := c.cardChain(ctx, id)
	if err != nil {
		return Card{}, err
	}
	if _, err := c.db.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id); err != nil {
		return Card{}, fmt.Errorf("deleting card: %w", err)
	}
	return card, nil
}

// CardReorderItem is one entry of a drag-and-drop reorder batch.
type CardReorderItem struct {
	ID     uuid.UUID
	ListID uuid.UUID
	Order  string
}

// Reorder applies new ranks and (possibly) new list assignments to a batch
// of cards belonging to boardID, after the set-difference ownership check
// from spec.md §4.5 step 3. It detects cross-list moves by comparing each
// card's pre-reorder list id (fetched in the same pass) with the
// post-reorder list id, and returns one CARD_MOVED envelope per moved card
// carrying the canonical server-side title — never the client-supplied one
// (spec.md §4.5, concrete scenario §8.2).
func (c *cardsDAL) Reorder(ctx context.Context, boardID uuid.UUID, items []CardReorderItem) ([]events.Envelope, error) {
	var envs []events.Envelope
	err := c.WithTx(ctx, func(ctx context.Context, txd *DAL) error {
		tc := txd.Cards()

		before, err := tc.ownedCardListIDs(ctx, boardID)
		if err != nil {
			return err
		}

		want := make([]uuid.UUID, len(items))
		for i, it := range items {
			want[i] = it.ID
		}
		haveIDs := make([]uuid.UUID, 0, len(before))
		for id := range before {
			haveIDs = append(haveIDs, id)
		}
		if foreign := setDifference(want, haveIDs); len(foreign) > 0 {
			return errForeignIDs("card reorder")
		}

		for _, it := range items {
			prior := before[it.ID]
			tag, err := tc.db.Exec(ctx,
				`UPDATE cards SET list_id = $1, "order" = $2 WHERE id = $3`,
				it.ListID, it.Order, it.ID,
			)
			if err != nil {
				return fmt.Errorf("reordering card %s: %w", it.ID, err)
			}
			if tag.RowsAffected() == 0 {
				return errNotFound("card")
			}
			if prior.listID != it.ListID {
				envs = append(envs, events.Envelope{
					Type: events.CardMoved, OrgID: tc.orgID, BoardID: boardID, CardID: it.ID,
					Context: map[string]any{
						"fromListId": prior.listID,
						"toListId":   it.ListID,
						"cardTitle":  prior.title,
					},
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

type cardSnapshot struct {
	listID uuid.UUID
	title  string
}

func (c *cardsDAL) ownedCardListIDs(ctx context.Context, boardID uuid.UUID) (map[uuid.UUID]cardSnapshot, error) {
	rows, err := c.db.Query(ctx,
		`SELECT cards.id, cards.list_id, cards.title
		 FROM cards JOIN lists ON lists.id = cards.list_id JOIN boards ON boards.id = lists.board_id
		 WHERE lists.board_id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL`,
		boardID, c.orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading owned card ids: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID]cardSnapshot{}
	for rows.Next() {
		var id, listID uuid.UUID
		var title string
		if err := rows.Scan(&id, &listID, &title); err != nil {
			return nil, fmt.Errorf("scanning card snapshot: %w", err)
		}
		out[id] = cardSnapshot{listID: listID, title: title}
	}
	return out, rows.Err()
}

// TailOrder returns the order string of the last card on listID, or "" if
// the list is empty.
func (c *cardsDAL) TailOrder(ctx context.Context, listID uuid.UUID) (string, error) {
	var order string
	err := c.db.QueryRow(ctx,
		`SELECT cards."order" FROM cards JOIN lists ON lists.id = cards.list_id JOIN boards ON boards.id = lists.board_id
		 WHERE cards.list_id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL
		 ORDER BY cards."order" DESC LIMIT 1`,
		listID, c.orgID,
	).Scan(&order)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("finding tail card order: %w", err)
	}
	return order, nil
}

// CountForPlan returns the number of cards on boardID, used by
// internal/plan to enforce the FREE-tier cards-per-board ceiling.
func (c *cardsDAL) CountForPlan(ctx context.Context, boardID uuid.UUID) (int, error) {
	var n int
	err := c.db.QueryRow(ctx,
		`SELECT count(*) FROM cards JOIN lists ON lists.id = cards.list_id JOIN boards ON boards.id = lists.board_id
		 WHERE lists.board_id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL`,
		boardID, c.orgID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting cards: %w", err)
	}
	return n, nil
}
