package dal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLog mirrors the AuditLog entity in spec.md §3.
type AuditLog struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	UserID      uuid.UUID
	EntityType  string
	EntityID    uuid.UUID
	EntityTitle string
	Action      AuditAction
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}

func (d *DAL) AuditLogs() *auditLogsDAL { return &auditLogsDAL{d} }

type auditLogsDAL struct{ *DAL }

// Create appends one audit row, scoped to the bound org regardless of which
// org the caller claims for entry — the orgId column is always d.orgID,
// never a caller-supplied value, per the invariant in spec.md §8.
func (a *auditLogsDAL) Create(ctx context.Context, entry AuditLog) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO audit_logs (org_id, user_id, entity_type, entity_id, entity_title, action, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))`,
		a.orgID, entry.UserID, entry.EntityType, entry.EntityID, entry.EntityTitle,
		entry.Action, entry.IPAddress, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("appending audit log: %w", err)
	}
	return nil
}

func (a *auditLogsDAL) List(ctx context.Context, limit, offset int) ([]AuditLog, error) {
	rows, err := a.db.Query(ctx,
		`SELECT id, org_id, user_id, entity_type, entity_id, entity_title, action,
		        COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		 FROM audit_logs WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		a.orgID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	defer rows.Close()

	var out []AuditLog
	for rows.Next() {
		var e AuditLog
		if err := rows.Scan(&e.ID, &e.OrgID, &e.UserID, &e.EntityType, &e.EntityID, &e.EntityTitle,
			&e.Action, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (a *auditLogsDAL) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRow(ctx, `SELECT count(*) FROM audit_logs WHERE org_id = $1`, a.orgID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit logs: %w", err)
	}
	return n, nil
}
