package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/events"
	"github.com/boardkeep/kernel/internal/lexorank"
	"github.com/boardkeep/kernel/internal/telemetry"
)

// Notifier delivers a SEND_NOTIFICATION action's message somewhere outside
// the database — Slack, by default (pkg/notify). Optional: if nil, the
// action is a no-op beyond its log row.
type Notifier interface {
	Notify(ctx context.Context, orgID uuid.UUID, message string) error
}

// Engine is the events.Handler that runs automations in response to
// published envelopes. It never returns an error to its caller — spec.md
// §4.7 step 5: "the engine never throws outward" — failures become
// AutomationLog rows instead.
type Engine struct {
	factory      *dal.Factory
	logger       *slog.Logger
	notifier     Notifier
	systemUserID uuid.UUID // zero value means unconfigured
	maxDepth     int
}

func NewEngine(factory *dal.Factory, logger *slog.Logger, notifier Notifier, systemUserID string, maxDepth int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	sysID, _ := uuid.Parse(systemUserID)
	return &Engine{factory: factory, logger: logger, notifier: notifier, systemUserID: sysID, maxDepth: maxDepth}
}

// Handle implements events.Handler.
func (e *Engine) Handle(ctx context.Context, env events.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("automation engine panicked", "recover", r, "event", env.Type)
		}
	}()
	e.run(ctx, env)
}

// run implements spec.md §4.7's runAutomations(event) algorithm.
func (e *Engine) run(ctx context.Context, env events.Envelope) {
	if env.Depth > e.maxDepth {
		telemetry.AutomationDepthExceededTotal.Inc()
		return
	}

	d := e.factory.ForOrg(env.OrgID)

	automations, err := d.Automations().ListEnabledForEvent(ctx, env.OrgID, env.BoardID)
	if err != nil {
		e.logger.Error("loading automations", "error", err, "org", env.OrgID)
		return
	}
	if len(automations) == 0 {
		return
	}

	var card dal.Card
	var cardOK bool
	if env.CardID != uuid.Nil {
		card, err = d.Cards().FindUnique(ctx, env.CardID)
		if err != nil {
			return
		}
		cardOK = true
	}

	for _, auto := range automations {
		e.runOne(ctx, d, env, auto, card, cardOK)
	}
}

func (e *Engine) runOne(ctx context.Context, d *dal.DAL, env events.Envelope, auto dal.Automation, card dal.Card, cardOK bool) {
	trig, err := decodeTrigger(auto.Trigger)
	if err != nil || !matchesTrigger(trig, env) {
		return
	}

	conds, err := decodeConditions(auto.Conditions)
	if err != nil {
		e.logRun(ctx, d, auto.ID, env.CardID, fmt.Errorf("decoding conditions: %w", err))
		return
	}
	if cardOK && !evaluateConditions(conds, card) {
		return
	}

	actions, err := decodeActions(auto.Actions)
	if err != nil {
		e.logRun(ctx, d, auto.ID, env.CardID, fmt.Errorf("decoding actions: %w", err))
		return
	}

	var runErr error
	for _, act := range actions {
		if err := e.executeAction(ctx, d, env, act); err != nil {
			// spec.md §4.7 step 4: "each action catches its own errors" —
			// log the first failure but keep executing the remaining actions.
			if runErr == nil {
				runErr = err
			}
			e.logger.Warn("automation action failed", "automation", auto.ID, "action", act.Type, "error", err)
		}
	}

	e.logRun(ctx, d, auto.ID, env.CardID, runErr)
	outcome := "success"
	if runErr != nil {
		outcome = "failure"
	}
	telemetry.AutomationRunsTotal.WithLabelValues(trig.Type, outcome).Inc()
	if runErr == nil {
		if err := d.Automations().RecordRun(ctx, auto.ID); err != nil {
			e.logger.Error("recording automation run", "automation", auto.ID, "error", err)
		}
	}
}

// DryRunResult reports what a live run would have done, without executing
// any action or writing a log row — the supplemented dry-run endpoint
// (pkg/auto) surfaces this so an operator can sanity-check a rule against a
// real card before enabling it.
type DryRunResult struct {
	TriggerMatched    bool
	ConditionsPassed  bool
	WouldExecute      []Action
}

// DryRun simulates automation against card, as if event had fired, without
// touching the database beyond the read of automation and card.
func (e *Engine) DryRun(ctx context.Context, orgID, automationID, cardID uuid.UUID, event events.Envelope) (DryRunResult, error) {
	d := e.factory.ForOrg(orgID)

	auto, err := d.Automations().Get(ctx, automationID)
	if err != nil {
		return DryRunResult{}, err
	}
	card, err := d.Cards().FindUnique(ctx, cardID)
	if err != nil {
		return DryRunResult{}, err
	}

	trig, err := decodeTrigger(auto.Trigger)
	if err != nil {
		return DryRunResult{}, fmt.Errorf("decoding trigger: %w", err)
	}
	result := DryRunResult{TriggerMatched: matchesTrigger(trig, event)}
	if !result.TriggerMatched {
		return result, nil
	}

	conds, err := decodeConditions(auto.Conditions)
	if err != nil {
		return DryRunResult{}, fmt.Errorf("decoding conditions: %w", err)
	}
	result.ConditionsPassed = evaluateConditions(conds, card)
	if !result.ConditionsPassed {
		return result, nil
	}

	actions, err := decodeActions(auto.Actions)
	if err != nil {
		return DryRunResult{}, fmt.Errorf("decoding actions: %w", err)
	}
	result.WouldExecute = actions
	return result, nil
}

func (e *Engine) logRun(ctx context.Context, d *dal.DAL, automationID uuid.UUID, cardID uuid.UUID, runErr error) {
	var cid *uuid.UUID
	if cardID != uuid.Nil {
		cid = &cardID
	}
	var msg *string
	if runErr != nil {
		s := runErr.Error()
		msg = &s
	}
	if err := d.AutomationLogs().Append(ctx, automationID, cid, runErr == nil, msg); err != nil {
		e.logger.Error("appending automation log", "automation", automationID, "error", err)
	}
}

// matchesTrigger implements spec.md §4.7 step 4's trigger-matching rules.
func matchesTrigger(t Trigger, env events.Envelope) bool {
	switch events.Type(t.Type) {
	case events.CardDeleted:
		// Deletions are handled by audit log only; never matches.
		return false
	case events.CardMoved:
		if env.Type != events.CardMoved {
			return false
		}
		if t.ListID == "" {
			return true
		}
		from, _ := env.Context["fromListId"].(string)
		if from == "" {
			if id, ok := env.Context["fromListId"].(uuid.UUID); ok {
				from = id.String()
			}
		}
		return from == t.ListID
	case events.CardDueSoon:
		if env.Type != events.CardDueSoon {
			return false
		}
		due, ok := parseDueDate(env.Context["dueDate"])
		if !ok {
			return false
		}
		return !due.After(time.Now().AddDate(0, 0, t.DaysBeforeDue))
	case events.LabelAdded:
		if env.Type != events.LabelAdded {
			return false
		}
		if t.LabelID == "" {
			return true
		}
		label, _ := env.Context["labelId"].(string)
		if label == "" {
			if id, ok := env.Context["labelId"].(uuid.UUID); ok {
				label = id.String()
			}
		}
		return label == t.LabelID
	case "CARD_TITLE_CONTAINS":
		title, _ := env.Context["cardTitle"].(string)
		return t.Keyword != "" && containsFold(title, t.Keyword)
	default:
		if string(env.Type) == t.Type {
			// Trigger types that mirror an event one-for-one with no extra
			// parameters to check (CARD_CREATED, PRIORITY_CHANGED, etc).
			return true
		}
		return false
	}
}

func parseDueDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, err := time.Parse(time.RFC3339, x)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

// evaluateConditions implements spec.md §4.7 step 4's condition evaluation.
// An empty condition list always passes.
func evaluateConditions(conds []Condition, card dal.Card) bool {
	for _, c := range conds {
		if !evaluateCondition(c, card) {
			return false
		}
	}
	return true
}

func evaluateCondition(c Condition, card dal.Card) bool {
	val := cardField(card, c.Field)
	switch c.Op {
	case "eq":
		return fmt.Sprintf("%v", val) == fmt.Sprintf("%v", c.Value)
	case "neq":
		return fmt.Sprintf("%v", val) != fmt.Sprintf("%v", c.Value)
	case "is_null":
		return val == nil
	case "is_not_null":
		return val != nil
	default:
		return false
	}
}

func cardField(card dal.Card, field string) any {
	switch strings.ToLower(field) {
	case "priority":
		return string(card.Priority)
	case "title":
		return card.Title
	case "description":
		return card.Description
	case "assigneeuserid":
		if card.AssigneeUserID == nil {
			return nil
		}
		return card.AssigneeUserID.String()
	case "duedate":
		if card.DueDate == nil {
			return nil
		}
		return card.DueDate.Format(time.RFC3339)
	case "listid":
		return card.ListID.String()
	default:
		return nil
	}
}

// executeAction implements one entry of spec.md §4.7 step 4's action list.
func (e *Engine) executeAction(ctx context.Context, d *dal.DAL, env events.Envelope, act Action) error {
	switch act.Type {
	case ActionSetPriority:
		if act.Priority == "" {
			return fmt.Errorf("SET_PRIORITY requires priority")
		}
		p := dal.Priority(act.Priority)
		_, _, err := d.Cards().Update(ctx, env.CardID, dal.CardUpdate{Priority: &p})
		return err

	case ActionAssignMember:
		if act.AssigneeID == "" {
			return fmt.Errorf("ASSIGN_MEMBER requires assigneeId")
		}
		id, err := uuid.Parse(act.AssigneeID)
		if err != nil {
			return fmt.Errorf("invalid assigneeId: %w", err)
		}
		assignee := &id
		_, _, err = d.Cards().Update(ctx, env.CardID, dal.CardUpdate{AssigneeUserID: &assignee})
		return err

	case ActionAddLabel:
		if act.LabelID == "" {
			return fmt.Errorf("ADD_LABEL requires labelId")
		}
		labelID, err := uuid.Parse(act.LabelID)
		if err != nil {
			return fmt.Errorf("invalid labelId: %w", err)
		}
		_, err = d.Labels().Assign(ctx, env.CardID, labelID)
		return err

	case ActionRemoveLabel:
		if act.LabelID == "" {
			return fmt.Errorf("REMOVE_LABEL requires labelId")
		}
		labelID, err := uuid.Parse(act.LabelID)
		if err != nil {
			return fmt.Errorf("invalid labelId: %w", err)
		}
		return d.Labels().Unassign(ctx, env.CardID, labelID)

	case ActionSetDueDateOffset:
		card, err := d.Cards().FindUnique(ctx, env.CardID)
		if err != nil {
			return err
		}
		if card.DueDate == nil {
			return nil // spec.md §4.7: "only applies if card has an existing due date"
		}
		newDue := card.DueDate.Add(time.Duration(act.DaysOffset) * 24 * time.Hour)
		duePtr := &newDue
		_, _, err = d.Cards().Update(ctx, env.CardID, dal.CardUpdate{DueDate: &duePtr})
		return err

	case ActionMoveCard:
		if act.ListID == "" {
			return fmt.Errorf("MOVE_CARD requires listId")
		}
		listID, err := uuid.Parse(act.ListID)
		if err != nil {
			return fmt.Errorf("invalid listId: %w", err)
		}
		return d.WithTx(ctx, func(ctx context.Context, txd *dal.DAL) error {
			tail, err := txd.Cards().TailOrder(ctx, listID)
			if err != nil {
				return err
			}
			_, err = txd.Cards().Reorder(ctx, env.BoardID, []dal.CardReorderItem{
				{ID: env.CardID, ListID: listID, Order: lexorank.NextAfter(tail)},
			})
			return err
		})

	case ActionCompleteChecklist:
		if act.ChecklistID == "" {
			return fmt.Errorf("COMPLETE_CHECKLIST requires checklistId")
		}
		checklistID, err := uuid.Parse(act.ChecklistID)
		if err != nil {
			return fmt.Errorf("invalid checklistId: %w", err)
		}
		if act.ItemID != "" {
			itemID, err := uuid.Parse(act.ItemID)
			if err != nil {
				return fmt.Errorf("invalid itemId: %w", err)
			}
			return d.ChecklistItems().CompleteItem(ctx, env.CardID, itemID)
		}
		return d.ChecklistItems().CompleteChecklist(ctx, env.CardID, checklistID)

	case ActionPostComment:
		if e.systemUserID == uuid.Nil || act.Comment == "" {
			return fmt.Errorf("POST_COMMENT requires SYSTEM_USER_ID and a non-empty comment")
		}
		_, err := d.Comments().Create(ctx, env.CardID, e.systemUserID, act.Comment, nil, false)
		return err

	case ActionSendNotification:
		if e.systemUserID == uuid.Nil || act.NotificationMessage == "" {
			return fmt.Errorf("SEND_NOTIFICATION requires SYSTEM_USER_ID and a non-empty message")
		}
		card, err := d.Cards().FindUnique(ctx, env.CardID)
		if err != nil {
			return err
		}
		if card.AssigneeUserID == nil {
			return fmt.Errorf("SEND_NOTIFICATION requires the card to have an assignee")
		}
		if e.notifier == nil {
			return nil
		}
		return e.notifier.Notify(ctx, env.OrgID, act.NotificationMessage)

	default:
		return fmt.Errorf("unknown action type %q", act.Type)
	}
}
