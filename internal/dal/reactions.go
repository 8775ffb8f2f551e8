package dal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/apperr"
)

// Reaction mirrors the Reaction entity in spec.md §3.
type Reaction struct {
	ID        uuid.UUID
	CommentID uuid.UUID
	UserID    uuid.UUID
	Emoji     string
}

func (d *DAL) Reactions() *reactionsDAL { return &reactionsDAL{d} }

type reactionsDAL struct{ *DAL }

// errAlreadyReacted is the CONFLICT spec.md §8's idempotence property names
// verbatim: "addReaction is idempotent on (commentId, userId, emoji) —
// second call returns {error:"Already reacted"}".
var errAlreadyReacted = apperr.Conflictf("Already reacted")

// Add inserts a reaction, verifying the comment chains to this org. The
// unique constraint on (comment_id, user_id, emoji) makes a duplicate
// add a CONFLICT rather than a silent no-op, matching spec.md §8's
// idempotence property exactly.
func (r *reactionsDAL) Add(ctx context.Context, commentID, userID uuid.UUID, emoji string) (Reaction, error) {
	if _, err := r.DAL.Comments().commentChain(ctx, commentID); err != nil {
		return Reaction{}, err
	}

	var reaction Reaction
	err := r.db.QueryRow(ctx,
		`INSERT INTO reactions (comment_id, user_id, emoji) VALUES ($1, $2, $3)
		 RETURNING id, comment_id, user_id, emoji`,
		commentID, userID, emoji,
	).Scan(&reaction.ID, &reaction.CommentID, &reaction.UserID, &reaction.Emoji)
	if isUniqueViolation(err) {
		return Reaction{}, errAlreadyReacted
	}
	if err != nil {
		return Reaction{}, fmt.Errorf("adding reaction: %w", err)
	}
	return reaction, nil
}

func (r *reactionsDAL) Remove(ctx context.Context, commentID, userID uuid.UUID, emoji string) error {
	if _, err := r.DAL.Comments().commentChain(ctx, commentID); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx,
		`DELETE FROM reactions WHERE comment_id = $1 AND user_id = $2 AND emoji = $3`,
		commentID, userID, emoji,
	); err != nil {
		return fmt.Errorf("removing reaction: %w", err)
	}
	return nil
}
