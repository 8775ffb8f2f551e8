// Package card implements the HTTP surface for
// cards.findUnique/create/update/delete/reorder (spec.md §4.5).
package card

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/events"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/lexorank"
	"github.com/boardkeep/kernel/internal/plan"
	"github.com/boardkeep/kernel/internal/rbac"
	"github.com/boardkeep/kernel/internal/safeaction"
)

// Handler provides HTTP handlers for the cards API.
type Handler struct {
	factory *dal.Factory
	safe    *safeaction.Deps
	limits  map[plan.Tier]plan.Limits
	logger  *slog.Logger
}

func NewHandler(factory *dal.Factory, safe *safeaction.Deps, logger *slog.Logger) *Handler {
	return &Handler{factory: factory, safe: safe, limits: plan.DefaultLimits(), logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Post("/reorder", h.handleReorder)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
	})
	return r
}

func parseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	tc, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "You must be signed in to perform this action.")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}
	c, err := h.factory.ForOrg(tc.OrgID).Cards().FindUnique(r.Context(), id)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": c})
}

// CreateRequest is the cards.create schema.
type CreateRequest struct {
	ListID      uuid.UUID `json:"listId" validate:"required"`
	Title       string    `json:"title" validate:"required,min=1,max=100"`
	Description string    `json:"description" validate:"max=10000"`
	Priority    string    `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "create-card"}, req,
		func(ctx context.Context, in CreateRequest, tc *identity.Context) (dal.Card, error) {
			d := h.factory.ForOrg(tc.OrgID)

			list, err := d.Lists().Get(ctx, in.ListID)
			if err != nil {
				return dal.Card{}, err
			}

			count, err := d.Cards().CountForPlan(ctx, list.BoardID)
			if err != nil {
				return dal.Card{}, err
			}
			org, err := d.Organizations().Get(ctx)
			if err != nil {
				return dal.Card{}, err
			}
			if err := plan.CheckCards(h.limits, plan.Tier(org.Plan), count); err != nil {
				return dal.Card{}, err
			}

			tail, err := d.Cards().TailOrder(ctx, in.ListID)
			if err != nil {
				return dal.Card{}, err
			}

			return d.Cards().Create(ctx, in.ListID, in.Title, in.Description, dal.Priority(in.Priority), lexorank.NextAfter(tail))
		},
		func(in CreateRequest, out dal.Card) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "card",
				EntityID:    out.ID,
				EntityTitle: out.Title,
				Action:      dal.AuditCreate,
				Envelopes: []events.Envelope{{
					Type: events.CardCreated, CardID: out.ID,
					Context: map[string]any{"cardTitle": out.Title},
				}},
			}
		},
	)
}

// UpdateRequest is the cards.update schema — every field optional, absent
// means "leave unchanged" per the patch semantics of dal.CardUpdate.
type UpdateRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=1,max=100"`
	Description    *string  `json:"description" validate:"omitempty,min=3,max=10000"`
	Priority       *string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate        **string `json:"dueDate"`
	AssigneeUserID **string `json:"assigneeUserId"`
}

// updateResult embeds the updated card for the JSON response while
// carrying the events its change produced through to the effects callback
// without exposing them to the client.
type updateResult struct {
	dal.Card
	Envelopes []events.Envelope `json:"-"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "update-card"}, req,
		func(ctx context.Context, in UpdateRequest, tc *identity.Context) (updateResult, error) {
			patch := dal.CardUpdate{Title: in.Title, Description: in.Description}
			if in.Priority != nil {
				p := dal.Priority(*in.Priority)
				patch.Priority = &p
			}
			if in.DueDate != nil {
				due, err := parseOptionalTime(*in.DueDate)
				if err != nil {
					return updateResult{}, err
				}
				patch.DueDate = &due
			}
			if in.AssigneeUserID != nil {
				assignee, err := parseOptionalUUID(*in.AssigneeUserID)
				if err != nil {
					return updateResult{}, err
				}
				patch.AssigneeUserID = &assignee
			}

			card, envs, err := h.factory.ForOrg(tc.OrgID).Cards().Update(ctx, id, patch)
			if err != nil {
				return updateResult{}, err
			}
			for i := range envs {
				envs[i].OrgID = tc.OrgID
			}
			return updateResult{Card: card, Envelopes: envs}, nil
		},
		func(in UpdateRequest, out updateResult) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "card",
				EntityID:    out.ID,
				EntityTitle: out.Title,
				Action:      dal.AuditUpdate,
				Envelopes:   out.Envelopes,
			}
		},
	)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "delete-card"}, struct{}{},
		func(ctx context.Context, in struct{}, tc *identity.Context) (dal.Card, error) {
			return h.factory.ForOrg(tc.OrgID).Cards().Delete(ctx, id)
		},
		func(in struct{}, out dal.Card) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "card",
				EntityID:    out.ID,
				EntityTitle: out.Title,
				Action:      dal.AuditDelete,
				Envelopes: []events.Envelope{{
					Type: events.CardDeleted, CardID: out.ID,
					Context: map[string]any{"cardTitle": out.Title},
				}},
			}
		},
	)
}

// ReorderRequest is the cards.reorder schema.
type ReorderRequest struct {
	BoardID uuid.UUID `json:"boardId" validate:"required"`
	Items   []struct {
		ID     uuid.UUID `json:"id" validate:"required"`
		ListID uuid.UUID `json:"listId" validate:"required"`
		Order  string    `json:"order" validate:"required"`
	} `json:"items" validate:"required,min=1,dive"`
}

type reorderResult struct {
	Envelopes []events.Envelope `json:"-"`
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "update-card-order"}, req,
		func(ctx context.Context, in ReorderRequest, tc *identity.Context) (reorderResult, error) {
			items := make([]dal.CardReorderItem, len(in.Items))
			for i, it := range in.Items {
				items[i] = dal.CardReorderItem{ID: it.ID, ListID: it.ListID, Order: it.Order}
			}
			envs, err := h.factory.ForOrg(tc.OrgID).Cards().Reorder(ctx, in.BoardID, items)
			if err != nil {
				return reorderResult{}, err
			}
			for i := range envs {
				envs[i].OrgID = tc.OrgID
				envs[i].BoardID = in.BoardID
			}
			return reorderResult{Envelopes: envs}, nil
		},
		func(in ReorderRequest, out reorderResult) safeaction.Effects {
			return safeaction.Effects{Envelopes: out.Envelopes}
		},
	)
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
