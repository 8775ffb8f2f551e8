package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Automation mirrors the Automation entity in spec.md §3. Trigger,
// Conditions and Actions are stored as JSONB and decoded by
// internal/automation into its own typed variants — the DAL's job is
// persistence and org-scoping, not interpreting the rule.
type Automation struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	BoardID    *uuid.UUID
	Name       string
	IsEnabled  bool
	Trigger    json.RawMessage
	Conditions json.RawMessage
	Actions    json.RawMessage
	RunCount   int
	LastRunAt  *time.Time
}

const automationColumns = `id, org_id, board_id, name, is_enabled, trigger, conditions, actions, run_count, last_run_at`

func scanAutomation(row pgx.Row) (Automation, error) {
	var a Automation
	err := row.Scan(&a.ID, &a.OrgID, &a.BoardID, &a.Name, &a.IsEnabled,
		&a.Trigger, &a.Conditions, &a.Actions, &a.RunCount, &a.LastRunAt)
	return a, err
}

func (d *DAL) Automations() *automationsDAL { return &automationsDAL{d} }

type automationsDAL struct{ *DAL }

func (a *automationsDAL) List(ctx context.Context) ([]Automation, error) {
	rows, err := a.db.Query(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE org_id = $1 ORDER BY created_at ASC`, a.orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing automations: %w", err)
	}
	defer rows.Close()

	var out []Automation
	for rows.Next() {
		auto, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning automation: %w", err)
		}
		out = append(out, auto)
	}
	return out, rows.Err()
}

// ListEnabledForEvent returns every enabled automation in orgID, optionally
// narrowed to boardID, in declaration order — spec.md §4.7 step 2/4: the
// engine walks them in this order and matches triggers itself.
func (a *automationsDAL) ListEnabledForEvent(ctx context.Context, orgID uuid.UUID, boardID uuid.UUID) ([]Automation, error) {
	rows, err := a.db.Query(ctx,
		`SELECT `+automationColumns+` FROM automations
		 WHERE org_id = $1 AND is_enabled = true AND (board_id IS NULL OR board_id = $2)
		 ORDER BY created_at ASC`,
		orgID, boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing enabled automations: %w", err)
	}
	defer rows.Close()

	var out []Automation
	for rows.Next() {
		auto, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning automation: %w", err)
		}
		out = append(out, auto)
	}
	return out, rows.Err()
}

func (a *automationsDAL) Get(ctx context.Context, id uuid.UUID) (Automation, error) {
	auto, err := scanAutomation(a.db.QueryRow(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE id = $1 AND org_id = $2`, id, a.orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Automation{}, errNotFound("automation")
	}
	if err != nil {
		return Automation{}, fmt.Errorf("getting automation: %w", err)
	}
	return auto, nil
}

func (a *automationsDAL) Create(ctx context.Context, boardID *uuid.UUID, name string, trigger, conditions, actions json.RawMessage) (Automation, error) {
	auto, err := scanAutomation(a.db.QueryRow(ctx,
		`INSERT INTO automations (org_id, board_id, name, is_enabled, trigger, conditions, actions)
		 VALUES ($1, $2, $3, true, $4, $5, $6)
		 RETURNING `+automationColumns,
		a.orgID, boardID, name, trigger, conditions, actions,
	))
	if err != nil {
		return Automation{}, fmt.Errorf("creating automation: %w", err)
	}
	return auto, nil
}

func (a *automationsDAL) Update(ctx context.Context, id uuid.UUID, name string, isEnabled bool, trigger, conditions, actions json.RawMessage) (Automation, error) {
	if _, err := a.Get(ctx, id); err != nil {
		return Automation{}, err
	}
	auto, err := scanAutomation(a.db.QueryRow(ctx,
		`UPDATE automations SET name = $1, is_enabled = $2, trigger = $3, conditions = $4, actions = $5
		 WHERE id = $6 RETURNING `+automationColumns,
		name, isEnabled, trigger, conditions, actions, id,
	))
	if err != nil {
		return Automation{}, fmt.Errorf("updating automation: %w", err)
	}
	return auto, nil
}

func (a *automationsDAL) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM automations WHERE id = $1 AND org_id = $2`, id, a.orgID)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("automation")
	}
	return nil
}

// RecordRun increments runCount and stamps lastRunAt, per spec.md §4.7 step
// 4's "on success only" accounting rule — callers must only call this after
// every action in the run has been attempted without a fatal engine error.
func (a *automationsDAL) RecordRun(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.Exec(ctx,
		`UPDATE automations SET run_count = run_count + 1, last_run_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("recording automation run: %w", err)
	}
	return nil
}

// AutomationLog mirrors the AutomationLog entity in spec.md §3. Append-only.
type AutomationLog struct {
	ID           uuid.UUID
	AutomationID uuid.UUID
	CardID       *uuid.UUID
	Success      bool
	Error        *string
	CreatedAt    time.Time
}

func (d *DAL) AutomationLogs() *automationLogsDAL { return &automationLogsDAL{d} }

type automationLogsDAL struct{ *DAL }

func (l *automationLogsDAL) Append(ctx context.Context, automationID uuid.UUID, cardID *uuid.UUID, success bool, errMsg *string) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO automation_logs (automation_id, card_id, success, error) VALUES ($1, $2, $3, $4)`,
		automationID, cardID, success, errMsg,
	)
	if err != nil {
		return fmt.Errorf("appending automation log: %w", err)
	}
	return nil
}

func (l *automationLogsDAL) ListForAutomation(ctx context.Context, automationID uuid.UUID, limit, offset int) ([]AutomationLog, error) {
	rows, err := l.db.Query(ctx,
		`SELECT automation_logs.id, automation_logs.automation_id, automation_logs.card_id,
		        automation_logs.success, automation_logs.error, automation_logs.created_at
		 FROM automation_logs
		 JOIN automations ON automations.id = automation_logs.automation_id
		 WHERE automation_logs.automation_id = $1 AND automations.org_id = $2
		 ORDER BY automation_logs.created_at DESC LIMIT $3 OFFSET $4`,
		automationID, l.orgID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing automation logs: %w", err)
	}
	defer rows.Close()

	var out []AutomationLog
	for rows.Next() {
		var log AutomationLog
		if err := rows.Scan(&log.ID, &log.AutomationID, &log.CardID, &log.Success, &log.Error, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning automation log: %w", err)
		}
		out = append(out, log)
	}
	return out, rows.Err()
}
