package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Comment mirrors the Comment entity in spec.md §3.
type Comment struct {
	ID           uuid.UUID
	CardID       uuid.UUID
	AuthorUserID uuid.UUID
	Text         string
	ParentID     *uuid.UUID
	IsDraft      bool
	CreatedAt    time.Time
}

const commentColumns = `id, card_id, author_user_id, text, parent_id, is_draft, created_at`

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.CardID, &c.AuthorUserID, &c.Text, &c.ParentID, &c.IsDraft, &c.CreatedAt)
	return c, err
}

func (d *DAL) Comments() *commentsDAL { return &commentsDAL{d} }

type commentsDAL struct{ *DAL }

// commentChain verifies id chains Comment → Card → List → Board to the
// bound org.
func (c *commentsDAL) commentChain(ctx context.Context, id uuid.UUID) (Comment, error) {
	comment, err := scanComment(c.db.QueryRow(ctx,
		`SELECT comments.id, comments.card_id, comments.author_user_id, comments.text,
		        comments.parent_id, comments.is_draft, comments.created_at
		 FROM comments
		 JOIN cards ON cards.id = comments.card_id
		 JOIN lists ON lists.id = cards.list_id
		 JOIN boards ON boards.id = lists.board_id
		 WHERE comments.id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL`,
		id, c.orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, errNotFound("comment")
	}
	if err != nil {
		return Comment{}, fmt.Errorf("verifying comment ownership: %w", err)
	}
	return comment, nil
}

// Create inserts a comment on cardID, verifying ownership and — per spec.md
// §3's Comment invariant — that parentID, when set, belongs to the same
// card.
func (c *commentsDAL) Create(ctx context.Context, cardID, authorUserID uuid.UUID, text string, parentID *uuid.UUID, isDraft bool) (Comment, error) {
	if _, _, err := c.DAL.Cards().cardChain(ctx, cardID); err != nil {
		return Comment{}, err
	}
	if parentID != nil {
		parent, err := c.commentChain(ctx, *parentID)
		if err != nil {
			return Comment{}, err
		}
		if parent.CardID != cardID {
			return Comment{}, errNotFound("parent comment")
		}
	}

	comment, err := scanComment(c.db.QueryRow(ctx,
		`INSERT INTO comments (card_id, author_user_id, text, parent_id, is_draft)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+commentColumns,
		cardID, authorUserID, text, parentID, isDraft,
	))
	if err != nil {
		return Comment{}, fmt.Errorf("creating comment: %w", err)
	}
	return comment, nil
}

func (c *commentsDAL) Update(ctx context.Context, id uuid.UUID, text string, isDraft bool) (Comment, error) {
	if _, err := c.commentChain(ctx, id); err != nil {
		return Comment{}, err
	}
	comment, err := scanComment(c.db.QueryRow(ctx,
		`UPDATE comments SET text = $1, is_draft = $2 WHERE id = $3 RETURNING `+commentColumns,
		text, isDraft, id,
	))
	if err != nil {
		return Comment{}, fmt.Errorf("updating comment: %w", err)
	}
	return comment, nil
}

func (c *commentsDAL) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := c.commentChain(ctx, id); err != nil {
		return err
	}
	if _, err := c.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return nil
}
