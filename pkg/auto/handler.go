// Package auto implements the HTTP surface for managing automations
// (spec.md §4.7) — a supplemented admin CRUD surface plus a dry-run
// endpoint, since the distilled spec defines the engine but not its
// management API.
package auto

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/automation"
	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/events"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/rbac"
	"github.com/boardkeep/kernel/internal/safeaction"
)

type Handler struct {
	factory *dal.Factory
	safe    *safeaction.Deps
	engine  *automation.Engine
	logger  *slog.Logger
}

func NewHandler(factory *dal.Factory, safe *safeaction.Deps, engine *automation.Engine, logger *slog.Logger) *Handler {
	return &Handler{factory: factory, safe: safe, engine: engine, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Post("/dry-run", h.handleDryRun)
	})
	return r
}

func parseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tc, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "You must be signed in to perform this action.")
		return
	}
	list, err := h.factory.ForOrg(tc.OrgID).Automations().List(r.Context())
	if err != nil {
		h.logger.Error("listing automations", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": list})
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
	auto, err := h.factory.ForOrg(tc.OrgID).Automations().Get(r.Context(), id)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": auto})
}

// CreateRequest is the automations.create schema.
type CreateRequest struct {
	BoardID    *uuid.UUID             `json:"boardId"`
	Name       string                 `json:"name" validate:"required,min=1,max=200"`
	Trigger    automation.Trigger     `json:"trigger" validate:"required"`
	Conditions []automation.Condition `json:"conditions"`
	Actions    []automation.Action    `json:"actions" validate:"required,min=1"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin}, req,
		func(ctx context.Context, in CreateRequest, tc *identity.Context) (dal.Automation, error) {
			trigger, err := json.Marshal(in.Trigger)
			if err != nil {
				return dal.Automation{}, err
			}
			conditions, err := json.Marshal(in.Conditions)
			if err != nil {
				return dal.Automation{}, err
			}
			actions, err := json.Marshal(in.Actions)
			if err != nil {
				return dal.Automation{}, err
			}
			return h.factory.ForOrg(tc.OrgID).Automations().Create(ctx, in.BoardID, in.Name, trigger, conditions, actions)
		},
		func(in CreateRequest, out dal.Automation) safeaction.Effects {
			return safeaction.Effects{EntityType: "automation", EntityID: out.ID, EntityTitle: out.Name, Action: dal.AuditCreate}
		},
	)
}

// UpdateRequest is the automations.update schema.
type UpdateRequest struct {
	Name       string                 `json:"name" validate:"required,min=1,max=200"`
	IsEnabled  bool                   `json:"isEnabled"`
	Trigger    automation.Trigger     `json:"trigger" validate:"required"`
	Conditions []automation.Condition `json:"conditions"`
	Actions    []automation.Action    `json:"actions" validate:"required,min=1"`
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

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin}, req,
		func(ctx context.Context, in UpdateRequest, tc *identity.Context) (dal.Automation, error) {
			trigger, err := json.Marshal(in.Trigger)
			if err != nil {
				return dal.Automation{}, err
			}
			conditions, err := json.Marshal(in.Conditions)
			if err != nil {
				return dal.Automation{}, err
			}
			actions, err := json.Marshal(in.Actions)
			if err != nil {
				return dal.Automation{}, err
			}
			return h.factory.ForOrg(tc.OrgID).Automations().Update(ctx, id, in.Name, in.IsEnabled, trigger, conditions, actions)
		},
		func(in UpdateRequest, out dal.Automation) safeaction.Effects {
			return safeaction.Effects{EntityType: "automation", EntityID: out.ID, EntityTitle: out.Name, Action: dal.AuditUpdate}
		},
	)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin}, struct{}{},
		func(ctx context.Context, in struct{}, tc *identity.Context) (uuid.UUID, error) {
			if err := h.factory.ForOrg(tc.OrgID).Automations().Delete(ctx, id); err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		func(in struct{}, out uuid.UUID) safeaction.Effects {
			return safeaction.Effects{EntityType: "automation", EntityID: out, Action: dal.AuditDelete}
		},
	)
}

// DryRunRequest is the automations.dryRun schema — simulates the named
// automation against an existing card without executing any action.
type DryRunRequest struct {
	CardID uuid.UUID `json:"cardId" validate:"required"`
}

func (h *Handler) handleDryRun(w http.ResponseWriter, r *http.Request) {
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
	var req DryRunRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.factory.ForOrg(tc.OrgID).Cards().FindUnique(r.Context(), req.CardID)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}

	result, err := h.engine.DryRun(r.Context(), tc.OrgID, id, req.CardID, events.Envelope{
		Type: events.CardUpdated, OrgID: tc.OrgID, CardID: card.ID,
		Context: map[string]any{"cardTitle": card.Title},
	})
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": result})
}
