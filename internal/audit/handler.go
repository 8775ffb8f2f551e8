package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/rbac"
)

// Handler provides HTTP handlers for the audit log API.
type Handler struct {
	factory *dal.Factory
	logger  *slog.Logger
}

// NewHandler creates an audit log Handler.
func NewHandler(factory *dal.Factory, logger *slog.Logger) *Handler {
	return &Handler{factory: factory, logger: logger}
}

// Routes returns a chi.Router with audit log routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

// handleList returns the audit log for the caller's organization,
// restricted to ADMIN and OWNER per spec.md §8.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tc, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := rbac.Require(tc.Role, rbac.RoleAdmin); err != nil {
		httpserver.RespondError(w, http.StatusForbidden, "forbidden")
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries := h.factory.ForOrg(tc.OrgID).AuditLogs()

	total, err := entries.Count(r.Context())
	if err != nil {
		h.logger.Error("counting audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}

	items, err := entries.List(r.Context(), params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}
