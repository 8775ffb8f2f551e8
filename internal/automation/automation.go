// Package automation implements the rule engine from spec.md §4.7: it
// subscribes to internal/events and, for each published envelope, matches
// enabled automations against the event, evaluates their conditions, and
// executes their actions against the DAL. Grounded on the teacher's
// pkg/escalation/engine.go (poll-driven tier-matching state machine),
// generalized from a time-driven tick loop to an event-driven one since
// automations fire on card mutations rather than elapsed time, and the
// trigger/condition/action vocabulary is board-Kanban-specific rather than
// escalation-tier-specific.
package automation

import (
	"encoding/json"
	"strings"
)

// Trigger is the typed union of spec.md §4.7's trigger kinds. Only the
// fields relevant to Type are populated; the rest are zero.
type Trigger struct {
	Type          string `json:"type"`
	ListID        string `json:"listId,omitempty"`
	DaysBeforeDue int     `json:"daysBeforeDue,omitempty"`
	LabelID       string `json:"labelId,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
}

// Condition is one entry of an automation's conditions list. Op is one of
// "eq", "neq", "is_null", "is_not_null"; unknown ops always fail (spec.md
// §4.7: "fail-safe").
type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value,omitempty"`
}

// Action is the typed union of spec.md §4.7's action kinds.
type Action struct {
	Type                string `json:"type"`
	Priority            string `json:"priority,omitempty"`
	AssigneeID          string `json:"assigneeId,omitempty"`
	LabelID             string `json:"labelId,omitempty"`
	DaysOffset          int    `json:"daysOffset,omitempty"`
	ListID              string `json:"listId,omitempty"`
	ChecklistID         string `json:"checklistId,omitempty"`
	ItemID              string `json:"itemId,omitempty"`
	Comment             string `json:"comment,omitempty"`
	NotificationMessage string `json:"notificationMessage,omitempty"`
}

const (
	ActionSetPriority       = "SET_PRIORITY"
	ActionAssignMember      = "ASSIGN_MEMBER"
	ActionAddLabel          = "ADD_LABEL"
	ActionRemoveLabel       = "REMOVE_LABEL"
	ActionSetDueDateOffset  = "SET_DUE_DATE_OFFSET"
	ActionMoveCard          = "MOVE_CARD"
	ActionCompleteChecklist = "COMPLETE_CHECKLIST"
	ActionPostComment       = "POST_COMMENT"
	ActionSendNotification  = "SEND_NOTIFICATION"
)

func decodeTrigger(raw json.RawMessage) (Trigger, error) {
	var t Trigger
	if len(raw) == 0 {
		return t, nil
	}
	err := json.Unmarshal(raw, &t)
	return t, err
}

func decodeConditions(raw json.RawMessage) ([]Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var c []Condition
	err := json.Unmarshal(raw, &c)
	return c, err
}

func decodeActions(raw json.RawMessage) ([]Action, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a []Action
	err := json.Unmarshal(raw, &a)
	return a, err
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
