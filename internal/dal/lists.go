package dal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// List mirrors the List entity in spec.md §3.
type List struct {
	ID      uuid.UUID
	BoardID uuid.UUID
	Title   string
	Order   string
}

const listColumns = `id, board_id, title, "order"`

func scanList(row pgx.Row) (List, error) {
	var l List
	err := row.Scan(&l.ID, &l.BoardID, &l.Title, &l.Order)
	return l, err
}

func (d *DAL) Lists() *listsDAL { return &listsDAL{d} }

type listsDAL struct{ *DAL }

// Get verifies id chains to the bound org and returns it, for callers (such
// as cards.create) that need a list's board id before proceeding.
func (l *listsDAL) Get(ctx context.Context, id uuid.UUID) (List, error) {
	return l.boardOwnsList(ctx, id)
}

// boardOwnsList verifies list chains to the bound org, returning its
// current order alongside for the "nextAfter(tail)" append path.
func (l *listsDAL) boardOwnsList(ctx context.Context, id uuid.UUID) (List, error) {
	list, err := scanList(l.db.QueryRow(ctx,
		`SELECT lists.id, lists.board_id, lists.title, lists."order"
		 FROM lists JOIN boards ON boards.id = lists.board_id
		 WHERE lists.id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL`,
		id, l.orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return List{}, errNotFound("list")
	}
	if err != nil {
		return List{}, fmt.Errorf("verifying list ownership: %w", err)
	}
	return list, nil
}

func (l *listsDAL) List(ctx context.Context, boardID uuid.UUID) ([]List, error) {
	// The org check lives in the join itself, so "this board has 0 lists"
	// and "this board doesn't exist (in this org)" both return an empty
	// list, with no separate lookup that could act as an existence oracle.
	rows, err := l.db.Query(ctx,
		`SELECT lists.id, lists.board_id, lists.title, lists."order"
		 FROM lists JOIN boards ON boards.id = lists.board_id
		 WHERE lists.board_id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL
		 ORDER BY lists."order" ASC`,
		boardID, l.orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing lists: %w", err)
	}
	defer rows.Close()

	var out []List
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning list: %w", err)
		}
		out = append(out, list)
	}
	return out, rows.Err()
}

func (l *listsDAL) Create(ctx context.Context, boardID uuid.UUID, title, order string) (List, error) {
	list, err := scanList(l.db.QueryRow(ctx,
		`INSERT INTO lists (board_id, title, "order")
		 SELECT $1, $2, $3 FROM boards WHERE boards.id = $1 AND boards.org_id = $4 AND boards.deleted_at IS NULL
		 RETURNING id, board_id, title, "order"`,
		boardID, title, order, l.orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return List{}, errNotFound("board")
	}
	if err != nil {
		return List{}, fmt.Errorf("creating list: %w", err)
	}
	return list, nil
}

func (l *listsDAL) Update(ctx context.Context, id uuid.UUID, title string) (List, error) {
	if _, err := l.boardOwnsList(ctx, id); err != nil {
		return List{}, err
	}
	list, err := scanList(l.db.QueryRow(ctx,
		`UPDATE lists SET title = $1 WHERE id = $2 RETURNING id, board_id, title, "order"`,
		title, id,
	))
	if err != nil {
		return List{}, fmt.Errorf("updating list: %w", err)
	}
	return list, nil
}

func (l *listsDAL) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := l.boardOwnsList(ctx, id); err != nil {
		return err
	}
	if _, err := l.db.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting list: %w", err)
	}
	return nil
}

// ReorderItem pairs a list id with its new rank for a reorder batch.
type ReorderItem struct {
	ID    uuid.UUID
	Order string
}

// Reorder applies new ranks to every list in items, after verifying every
// id in items legitimately belongs to boardID (spec.md §4.5 step 3): it
// fetches the ids that actually belong to the board, diffs them against the
// client-supplied ids, and fails the whole batch atomically if any id is
// foreign.
func (l *listsDAL) Reorder(ctx context.Context, boardID uuid.UUID, items []ReorderItem) error {
	return l.WithTx(ctx, func(ctx context.Context, txd *DAL) error {
		tl := txd.Lists()

		owned, err := tl.ownedListIDs(ctx, boardID)
		if err != nil {
			return err
		}
		want := make([]uuid.UUID, len(items))
		for i, it := range items {
			want[i] = it.ID
		}
		if foreign := setDifference(want, owned); len(foreign) > 0 {
			return errForeignIDs("list reorder")
		}

		for _, it := range items {
			if _, err := tl.db.Exec(ctx, `UPDATE lists SET "order" = $1 WHERE id = $2`, it.Order, it.ID); err != nil {
				return fmt.Errorf("reordering list %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

func (l *listsDAL) ownedListIDs(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := l.db.Query(ctx,
		`SELECT lists.id FROM lists JOIN boards ON boards.id = lists.board_id
		 WHERE lists.board_id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL`,
		boardID, l.orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading owned list ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning list id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TailOrder returns the order string of the last list on boardID, or "" if
// the board has no lists, for computing nextAfter(tail) on append.
func (l *listsDAL) TailOrder(ctx context.Context, boardID uuid.UUID) (string, error) {
	var order string
	err := l.db.QueryRow(ctx,
		`SELECT lists."order" FROM lists JOIN boards ON boards.id = lists.board_id
		 WHERE lists.board_id = $1 AND boards.org_id = $2 AND boards.deleted_at IS NULL
		 ORDER BY lists."order" DESC LIMIT 1`,
		boardID, l.orgID,
	).Scan(&order)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("finding tail list order: %w", err)
	}
	return order, nil
}
