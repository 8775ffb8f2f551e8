// Package board implements the HTTP surface for boards.create/update/delete/list
// (spec.md §4.5), gated through the safe-action wrapper for mutations.
package board

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/plan"
	"github.com/boardkeep/kernel/internal/rbac"
	"github.com/boardkeep/kernel/internal/safeaction"
)

// Handler provides HTTP handlers for the boards API.
type Handler struct {
	factory *dal.Factory
	safe    *safeaction.Deps
	limits  map[plan.Tier]plan.Limits
	logger  *slog.Logger
}

// NewHandler creates a board Handler.
func NewHandler(factory *dal.Factory, safe *safeaction.Deps, logger *slog.Logger) *Handler {
	return &Handler{factory: factory, safe: safe, limits: plan.DefaultLimits(), logger: logger}
}

// Routes returns a chi.Router with all board routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
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

	boards, err := h.factory.ForOrg(tc.OrgID).Boards().List(r.Context())
	if err != nil {
		h.logger.Error("listing boards", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": boards})
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

	b, err := h.factory.ForOrg(tc.OrgID).Boards().Get(r.Context(), id)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": b})
}

// CreateRequest is the boards.create schema.
type CreateRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin, RateLimitKey: "create-board"}, req,
		func(ctx context.Context, in CreateRequest, tc *identity.Context) (dal.Board, error) {
			d := h.factory.ForOrg(tc.OrgID)

			count, err := d.Boards().CountForPlan(ctx)
			if err != nil {
				return dal.Board{}, err
			}
			org, err := d.Organizations().Get(ctx)
			if err != nil {
				return dal.Board{}, err
			}
			if err := plan.CheckBoards(h.limits, plan.Tier(org.Plan), count); err != nil {
				return dal.Board{}, err
			}

			return d.Boards().Create(ctx, in.Title, in.ImageURL)
		},
		func(in CreateRequest, out dal.Board) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "board",
				EntityID:    out.ID,
				EntityTitle: out.Title,
				Action:      dal.AuditCreate,
			}
		},
	)
}

// UpdateRequest is the boards.update schema.
type UpdateRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
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

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin, RateLimitKey: "update-board"}, req,
		func(ctx context.Context, in UpdateRequest, tc *identity.Context) (dal.Board, error) {
			return h.factory.ForOrg(tc.OrgID).Boards().Update(ctx, id, in.Title, in.ImageURL)
		},
		func(in UpdateRequest, out dal.Board) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "board",
				EntityID:    out.ID,
				EntityTitle: out.Title,
				Action:      dal.AuditUpdate,
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

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin, RateLimitKey: "delete-board"}, struct{}{},
		func(ctx context.Context, in struct{}, tc *identity.Context) (uuid.UUID, error) {
			if err := h.factory.ForOrg(tc.OrgID).Boards().Delete(ctx, id); err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		func(in struct{}, out uuid.UUID) safeaction.Effects {
			return safeaction.Effects{
				EntityType: "board",
				EntityID:   out,
				Action:     dal.AuditDelete,
			}
		},
	)
}
