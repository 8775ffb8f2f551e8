package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Board mirrors the Board entity in spec.md §3.
type Board struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Title     string
	ImageURL  string
	CreatedAt time.Time
}

const boardColumns = `id, org_id, title, COALESCE(image_url, ''), created_at`

func scanBoard(row pgx.Row) (Board, error) {
	var b Board
	err := row.Scan(&b.ID, &b.OrgID, &b.Title, &b.ImageURL, &b.CreatedAt)
	return b, err
}

// Boards returns the board CRUD surface bound to d's org.
func (d *DAL) Boards() *boardsDAL { return &boardsDAL{d} }

type boardsDAL struct{ *DAL }

func (b *boardsDAL) List(ctx context.Context) ([]Board, error) {
	rows, err := b.db.Query(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE org_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`,
		b.orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	defer rows.Close()

	var out []Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning board: %w", err)
		}
		out = append(out, board)
	}
	return out, rows.Err()
}

func (b *boardsDAL) Get(ctx context.Context, id uuid.UUID) (Board, error) {
	board, err := scanBoard(b.db.QueryRow(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		id, b.orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Board{}, errNotFound("board")
	}
	if err != nil {
		return Board{}, fmt.Errorf("getting board: %w", err)
	}
	return board, nil
}

func (b *boardsDAL) Create(ctx context.Context, title, imageURL string) (Board, error) {
	board, err := scanBoard(b.db.QueryRow(ctx,
		`INSERT INTO boards (org_id, title, image_url) VALUES ($1, $2, NULLIF($3, ''))
		 RETURNING `+boardColumns,
		b.orgID, title, imageURL,
	))
	if err != nil {
		return Board{}, fmt.Errorf("creating board: %w", err)
	}
	return board, nil
}

func (b *boardsDAL) Update(ctx context.Context, id uuid.UUID, title, imageURL string) (Board, error) {
	board, err := scanBoard(b.db.QueryRow(ctx,
		`UPDATE boards SET title = $1, image_url = NULLIF($2, '')
		 WHERE id = $3 AND org_id = $4 AND deleted_at IS NULL
		 RETURNING `+boardColumns,
		title, imageURL, id, b.orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Board{}, errNotFound("board")
	}
	if err != nil {
		return Board{}, fmt.Errorf("updating board: %w", err)
	}
	return board, nil
}

func (b *boardsDAL) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := b.db.Exec(ctx,
		`UPDATE boards SET deleted_at = now() WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		id, b.orgID,
	)
	if err != nil {
		return fmt.Errorf("deleting board: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("board")
	}
	return nil
}

// CountForPlan returns the number of non-deleted boards in the org, used by
// internal/plan to enforce the FREE-tier board ceiling (spec.md §6).
func (b *boardsDAL) CountForPlan(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRow(ctx,
		`SELECT count(*) FROM boards WHERE org_id = $1 AND deleted_at IS NULL`, b.orgID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting boards: %w", err)
	}
	return n, nil
}
