// Package events is the in-process publish point described in spec.md §4.7:
// the DAL emits envelopes here, and the automation engine and webhook
// dispatcher subscribe. Grounded on the teacher's escalation engine's
// poll-and-fan-out shape (pkg/escalation/engine.go), generalized from a
// Redis-subscribed tick loop to an in-process registry, since the
// spec places automation and webhook evaluation in the same process as the
// mutation that triggers them.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// handlerTimeout bounds each subscriber's run once it's detached from the
// originating request (spec.md §5: deferred work must outlive the response
// but still carries its own deadline).
const handlerTimeout = 30 * time.Second

type Type string

const (
	CardCreated        Type = "CARD_CREATED"
	CardUpdated        Type = "CARD_UPDATED"
	CardMoved          Type = "CARD_MOVED"
	CardDeleted        Type = "CARD_DELETED"
	CardDueSoon        Type = "CARD_DUE_SOON"
	CardOverdue        Type = "CARD_OVERDUE"
	LabelAdded         Type = "LABEL_ADDED"
	ChecklistCompleted Type = "CHECKLIST_COMPLETED"
	MemberAssigned     Type = "MEMBER_ASSIGNED"
	PriorityChanged    Type = "PRIORITY_CHANGED"
)

// MaxDepth is the automation recursion ceiling (spec.md §6 MAX_AUTOMATION_DEPTH).
const MaxDepth = 3

// Envelope is the event shape from spec.md §4.7. Context carries type-specific
// fields (e.g. CARD_MOVED's fromListId/toListId) plus cardTitle, which every
// card-scoped event includes so the CARD_TITLE_CONTAINS trigger can match
// against it regardless of the event's Type.
type Envelope struct {
	Type    Type
	OrgID   uuid.UUID
	BoardID uuid.UUID
	CardID  uuid.UUID
	Context map[string]any
	Depth   int
}

// Handler consumes published envelopes. Implementations (the automation
// engine, the webhook dispatcher) must never panic and must treat ctx as
// detached from the originating request (spec.md §5: deferred work outlives
// the response).
type Handler interface {
	Handle(ctx context.Context, env Envelope)
}

// Bus fans out published envelopes to every registered handler, each in its
// own goroutine, so a panicking or slow handler does not affect its siblings
// or the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers h to receive every future Publish call. The handler
// list is guarded by the bus mutex, so Subscribe may run concurrently with
// Publish.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish fans out env to every subscriber. Each handler runs in its own
// goroutine so a slow webhook delivery never delays automation evaluation
// or the caller. Publish never blocks on handler completion and never
// returns an error — per spec.md §4.7 step 5 and §4.8 step 4, the engine
// and dispatcher must never propagate failures to the publisher.
func (b *Bus) Publish(ctx context.Context, env Envelope) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		go func() {
			// Detached from the request context per spec.md §5: the HTTP
			// server cancels ctx the moment the handler returns, but
			// automation/webhook evaluation must outlive the response.
			runCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()

			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", "event", env.Type, "recover", r)
				}
			}()
			h.Handle(runCtx, env)
		}()
	}
}
