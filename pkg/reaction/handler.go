// Package reaction implements the HTTP surface for reactions.add/remove.
package reaction

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
	r.Post("/", h.handleAdd)
	r.Delete("/", h.handleRemove)
	return r
}

// Request is the shared reactions.add / reactions.remove schema.
type Request struct {
	CommentID uuid.UUID `json:"commentId" validate:"required"`
	Emoji     string    `json:"emoji" validate:"required,max=32,emoji"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req Request
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "add-reaction"}, req,
		func(ctx context.Context, in Request, tc *identity.Context) (dal.Reaction, error) {
			return h.factory.ForOrg(tc.OrgID).Reactions().Add(ctx, in.CommentID, tc.UserID, in.Emoji)
		},
		func(in Request, out dal.Reaction) safeaction.Effects {
			return safeaction.Effects{EntityType: "reaction", EntityID: out.ID, Action: dal.AuditCreate}
		},
	)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req Request
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember, RateLimitKey: "remove-reaction"}, req,
		func(ctx context.Context, in Request, tc *identity.Context) (struct{}, error) {
			return struct{}{}, h.factory.ForOrg(tc.OrgID).Reactions().Remove(ctx, in.CommentID, tc.UserID, in.Emoji)
		},
		nil,
	)
}
