// Package list implements the HTTP surface for lists.create/update/delete/reorder.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/lexorank"
	"github.com/boardkeep/kernel/internal/rbac"
	"github.com/boardkeep/kernel/internal/safeaction"
)

// Handler provides HTTP handlers for the lists API.
type Handler struct {
	factory *dal.Factory
	safe    *safeaction.Deps
	logger  *slog.Logger
}

func NewHandler(factory *dal.Factory, safe *safeaction.Deps, logger *slog.Logger) *Handler {
	return &Handler{factory: factory, safe: safe, logger: logger}
}

// Routes returns a chi.Router with all list routes mounted. boardID is read
// from the ?boardId= query parameter for List, and from the request body
// for Create/Reorder, matching spec.md §4.5's operation signatures.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Post("/reorder", h.handleReorder)
	r.Route("/{id}", func(r chi.Router) {
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

	boardID, err := uuid.Parse(r.URL.Query().Get("boardId"))
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}

	lists, err := h.factory.ForOrg(tc.OrgID).Lists().List(r.Context(), boardID)
	if err != nil {
		h.logger.Error("listing lists", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": lists})
}

// CreateRequest is the lists.create schema.
type CreateRequest struct {
	BoardID uuid.UUID `json:"boardId" validate:"required"`
	Title   string    `json:"title" validate:"required,min=1,max=200"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember}, req,
		func(ctx context.Context, in CreateRequest, tc *identity.Context) (dal.List, error) {
			d := h.factory.ForOrg(tc.OrgID).Lists()
			tail, err := d.TailOrder(ctx, in.BoardID)
			if err != nil {
				return dal.List{}, err
			}
			return d.Create(ctx, in.BoardID, in.Title, lexorank.NextAfter(tail))
		},
		func(in CreateRequest, out dal.List) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "list",
				EntityID:    out.ID,
				EntityTitle: out.Title,
				Action:      dal.AuditCreate,
			}
		},
	)
}

// UpdateRequest is the lists.update schema.
type UpdateRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
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

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember}, req,
		func(ctx context.Context, in UpdateRequest, tc *identity.Context) (dal.List, error) {
			return h.factory.ForOrg(tc.OrgID).Lists().Update(ctx, id, in.Title)
		},
		func(in UpdateRequest, out dal.List) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "list",
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

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin}, struct{}{},
		func(ctx context.Context, in struct{}, tc *identity.Context) (uuid.UUID, error) {
			if err := h.factory.ForOrg(tc.OrgID).Lists().Delete(ctx, id); err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		func(in struct{}, out uuid.UUID) safeaction.Effects {
			return safeaction.Effects{EntityType: "list", EntityID: out, Action: dal.AuditDelete}
		},
	)
}

// ReorderRequest is the lists.reorder schema.
type ReorderRequest struct {
	BoardID uuid.UUID `json:"boardId" validate:"required"`
	Items   []struct {
		ID    uuid.UUID `json:"id" validate:"required"`
		Order string    `json:"order" validate:"required"`
	} `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "update-card-order"}, req,
		func(ctx context.Context, in ReorderRequest, tc *identity.Context) (struct{}, error) {
			items := make([]dal.ReorderItem, len(in.Items))
			for i, it := range in.Items {
				items[i] = dal.ReorderItem{ID: it.ID, Order: it.Order}
			}
			return struct{}{}, h.factory.ForOrg(tc.OrgID).Lists().Reorder(ctx, in.BoardID, items)
		},
		nil,
	)
}
