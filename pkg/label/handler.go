// Package label implements the HTTP surface for labels.create/assign/unassign/list.
package label

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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
	logger  *slog.Logger
}

func NewHandler(factory *dal.Factory, safe *safeaction.Deps, logger *slog.Logger) *Handler {
	return &Handler{factory: factory, safe: safe, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Post("/assign", h.handleAssign)
	r.Post("/unassign", h.handleUnassign)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tc, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "You must be signed in to perform this action.")
		return
	}
	labels, err := h.factory.ForOrg(tc.OrgID).Labels().List(r.Context())
	if err != nil {
		h.logger.Error("listing labels", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": labels})
}

// CreateRequest is the labels.create schema.
type CreateRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Color string `json:"color" validate:"required,hexcolor"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin}, req,
		func(ctx context.Context, in CreateRequest, tc *identity.Context) (dal.Label, error) {
			return h.factory.ForOrg(tc.OrgID).Labels().Create(ctx, in.Name, in.Color)
		},
		func(in CreateRequest, out dal.Label) safeaction.Effects {
			return safeaction.Effects{
				EntityType:  "label",
				EntityID:    out.ID,
				EntityTitle: out.Name,
				Action:      dal.AuditCreate,
			}
		},
	)
}

// AssignRequest is the labels.assign / labels.unassign schema.
type AssignRequest struct {
	CardID  uuid.UUID `json:"cardId" validate:"required"`
	LabelID uuid.UUID `json:"labelId" validate:"required"`
}

type assignResult struct {
	Envelope *events.Envelope `json:"-"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember}, req,
		func(ctx context.Context, in AssignRequest, tc *identity.Context) (assignResult, error) {
			env, err := h.factory.ForOrg(tc.OrgID).Labels().Assign(ctx, in.CardID, in.LabelID)
			if err != nil {
				return assignResult{}, err
			}
			if env != nil {
				env.OrgID = tc.OrgID
			}
			return assignResult{Envelope: env}, nil
		},
		func(in AssignRequest, out assignResult) safeaction.Effects {
			eff := safeaction.Effects{
				EntityType: "card_label",
				EntityID:   in.CardID,
				Action:     dal.AuditCreate,
			}
			if out.Envelope != nil {
				eff.Envelopes = []events.Envelope{*out.Envelope}
			}
			return eff
		},
	)
}

func (h *Handler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleMember}, req,
		func(ctx context.Context, in AssignRequest, tc *identity.Context) (struct{}, error) {
			return struct{}{}, h.factory.ForOrg(tc.OrgID).Labels().Unassign(ctx, in.CardID, in.LabelID)
		},
		func(in AssignRequest, out struct{}) safeaction.Effects {
			return safeaction.Effects{EntityType: "card_label", EntityID: in.CardID, Action: dal.AuditDelete}
		},
	)
}
