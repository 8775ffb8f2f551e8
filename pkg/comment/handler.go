// Package comment implements the HTTP surface for comments.create/update/delete.
package comment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/rbac"
	"github.com/boardkeep/kernel/internal/safeaction"
)

type Handler struct {
	factory *dal.Factory
	safe    *safeaction.Deps
	logger  *slog.Logger
}

func NewHandler(factory *dal.Factory, safe *safeaction.Deps, logger *slog.Logger) *Handler {
	return &Handler{factory: factory, safe: safe, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
	})
	return r
}

func parseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// CreateRequest is the comments.create schema.
type CreateRequest struct {
	CardID   uuid.UUID  `json:"cardId" validate:"required"`
	Text     string     `json:"text" validate:"required,min=1,max=5000"`
	ParentID *uuid.UUID `json:"parentId"`
	IsDraft  bool       `json:"isDraft"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "create-comment"}, req,
		func(ctx context.Context, in CreateRequest, tc *identity.Context) (dal.Comment, error) {
			return h.factory.ForOrg(tc.OrgID).Comments().Create(ctx, in.CardID, tc.UserID, in.Text, in.ParentID, in.IsDraft)
		},
		func(in CreateRequest, out dal.Comment) safeaction.Effects {
			return safeaction.Effects{
				EntityType: "comment",
				EntityID:   out.ID,
				Action:     dal.AuditCreate,
			}
		},
	)
}

// UpdateRequest is the comments.update schema.
type UpdateRequest struct {
	Text    string `json:"text" validate:"required,min=1,max=5000"`
	IsDraft bool   `json:"isDraft"`
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

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "update-comment"}, req,
		func(ctx context.Context, in UpdateRequest, tc *identity.Context) (dal.Comment, error) {
			return h.factory.ForOrg(tc.OrgID).Comments().Update(ctx, id, in.Text, in.IsDraft)
		},
		func(in UpdateRequest, out dal.Comment) safeaction.Effects {
			return safeaction.Effects{EntityType: "comment", EntityID: out.ID, Action: dal.AuditUpdate}
		},
	)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "delete-comment"}, struct{}{},
		func(ctx context.Context, in struct{}, tc *identity.Context) (uuid.UUID, error) {
			if err := h.factory.ForOrg(tc.OrgID).Comments().Delete(ctx, id); err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		func(in struct{}, out uuid.UUID) safeaction.Effects {
			return safeaction.Effects{EntityType: "comment", EntityID: out, Action: dal.AuditDelete}
		},
	)
}
