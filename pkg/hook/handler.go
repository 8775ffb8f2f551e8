// Package hook implements the HTTP surface for managing outbound webhooks
// (spec.md §4.8) — admin CRUD plus a delivery log listing endpoint.
package hook

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

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
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Get("/deliveries", h.handleListDeliveries)
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
	hooks, err := h.factory.ForOrg(tc.OrgID).Webhooks().List(r.Context())
	if err != nil {
		h.logger.Error("listing webhooks", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": hooks})
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
	hook, err := h.factory.ForOrg(tc.OrgID).Webhooks().Get(r.Context(), id)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": hook})
}

// CreateRequest is the webhooks.create schema. Secret is generated
// server-side, like a per-tenant API credential, and returned exactly once.
type CreateRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	safeaction.Run(w, r, h.safe, safeaction.Config{MinRole: rbac.RoleAdmin}, req,
		func(ctx context.Context, in CreateRequest, tc *identity.Context) (dal.Webhook, error) {
			secret := uuid.NewString() + uuid.NewString()
			return h.factory.ForOrg(tc.OrgID).Webhooks().Create(ctx, in.URL, secret, in.Events)
		},
		func(in CreateRequest, out dal.Webhook) safeaction.Effects {
			return safeaction.Effects{EntityType: "webhook", EntityID: out.ID, EntityTitle: out.URL, Action: dal.AuditCreate}
		},
	)
}

// UpdateRequest is the webhooks.update schema.
type UpdateRequest struct {
	URL       string   `json:"url" validate:"required,url"`
	Events    []string `json:"events" validate:"required,min=1"`
	IsEnabled bool     `json:"isEnabled"`
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
		func(ctx context.Context, in UpdateRequest, tc *identity.Context) (dal.Webhook, error) {
			return h.factory.ForOrg(tc.OrgID).Webhooks().Update(ctx, id, in.URL, in.Events, in.IsEnabled)
		},
		func(in UpdateRequest, out dal.Webhook) safeaction.Effects {
			return safeaction.Effects{EntityType: "webhook", EntityID: out.ID, EntityTitle: out.URL, Action: dal.AuditUpdate}
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
			if err := h.factory.ForOrg(tc.OrgID).Webhooks().Delete(ctx, id); err != nil {
				return uuid.Nil, err
			}
			return id, nil
		},
		func(in struct{}, out uuid.UUID) safeaction.Effects {
			return safeaction.Effects{EntityType: "webhook", EntityID: out, Action: dal.AuditDelete}
		},
	)
}

func (h *Handler) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
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

	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	deliveries, err := h.factory.ForOrg(tc.OrgID).WebhookDeliveries().ListForWebhook(r.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("listing webhook deliveries", "error", err, "webhook", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"data": deliveries})
}
