// Package safeaction implements the higher-order mutation wrapper used by
// every domain handler: validate, enforce role, rate-limit, block demo-mode
// mutations, call the handler, then schedule audit/event side effects and
// translate any typed error to its canonical client-facing string.
package safeaction

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/boardkeep/kernel/internal/apperr"
	"github.com/boardkeep/kernel/internal/audit"
	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/events"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/ratelimit"
	"github.com/boardkeep/kernel/internal/rbac"
)

// Deps bundles the cross-cutting collaborators every safe action needs.
// One Deps is constructed at startup and shared by every handler.
type Deps struct {
	Limiter   *ratelimit.Limiter
	Audit     *audit.Writer
	Events    *events.Bus
	DemoOrgID string
	Logger    *slog.Logger
}

// Effects describes the audit-log append and event publications to run
// after a successful handler call (step 7 of spec.md §4.6). Zero value
// means "nothing to log or publish" — used by read-only actions.
type Effects struct {
	EntityType  string
	EntityID    uuid.UUID
	EntityTitle string
	Action      dal.AuditAction
	Envelopes   []events.Envelope
}

// Config configures a single safe action invocation.
type Config struct {
	// MinRole is the minimum organization role required to proceed.
	MinRole rbac.Role
	// RateLimitKey names the action for the rate limiter's per-minute
	// quota table (spec.md §6). Empty means unlimited.
	RateLimitKey string
}

// Run executes the safe-action pipeline around handler and writes exactly
// one of {data}, {error}, {fieldErrors} to w. in must already be decoded
// and schema-validated by the caller (step 1) — see
// httpserver.DecodeAndValidate.
//
// effects, if non-nil, is invoked with the handler's result to produce the
// audit/event side effects for step 7; it may return a zero Effects to
// skip logging (e.g. for actions with nothing worth auditing).
func Run[In any, Out any](
	w http.ResponseWriter,
	r *http.Request,
	deps *Deps,
	cfg Config,
	in In,
	handler func(ctx context.Context, in In, tc *identity.Context) (Out, error),
	effects func(in In, out Out) Effects,
) {
	ctx := r.Context()

	// Step 2: tenant context was already resolved by the authentication
	// middleware before this handler ran.
	tc, ok := identity.FromContext(ctx)
	if !ok {
		httpserver.RespondError(w, http.StatusUnauthorized, "You must be signed in to perform this action.")
		return
	}

	// Step 3: role gate.
	if err := rbac.Require(tc.Role, cfg.MinRole); err != nil {
		httpserver.RespondError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	// Step 4: rate limit.
	if cfg.RateLimitKey != "" {
		if res := deps.Limiter.Check(tc.UserID.String(), cfg.RateLimitKey); !res.Allowed {
			rle := &ratelimit.ErrRateLimited{ResetInMs: res.ResetInMs}
			httpserver.RespondError(w, http.StatusTooManyRequests, rle.Error())
			return
		}
	}

	// Step 5: demo-mode mutation block.
	if deps.DemoOrgID != "" && tc.OrgID.String() == deps.DemoOrgID {
		httpserver.RespondError(w, http.StatusForbidden, "Not available in demo mode.")
		return
	}

	// Step 6: call the handler.
	out, err := handler(ctx, in, tc)
	if err != nil {
		respondError(w, deps.Logger, err)
		return
	}

	// Step 7: schedule audit/event side effects.
	if effects != nil {
		eff := effects(in, out)
		if eff.EntityType != "" {
			deps.Audit.LogFromRequest(r, eff.EntityType, eff.EntityID, eff.EntityTitle, eff.Action)
		}
		for _, env := range eff.Envelopes {
			deps.Events.Publish(ctx, env)
		}
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{"data": out})
}

// respondError implements steps 8-9: typed errors map to their canonical
// client-facing string, anything else is logged internally and replaced
// with a generic message — never leaking storage-layer text.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		logger.Error("safe action failed", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	switch ae.Kind {
	case apperr.Unauthenticated:
		httpserver.RespondError(w, http.StatusUnauthorized, "You must be signed in to perform this action.")
	case apperr.Forbidden:
		httpserver.RespondError(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case apperr.NotFound:
		httpserver.RespondError(w, http.StatusNotFound, "Not found.")
	case apperr.Conflict:
		httpserver.RespondError(w, http.StatusConflict, ae.Msg)
	case apperr.RateLimited:
		httpserver.RespondError(w, http.StatusTooManyRequests, ae.Msg)
	case apperr.Demo:
		httpserver.RespondError(w, http.StatusForbidden, "Not available in demo mode.")
	default:
		logger.Error("safe action failed", "kind", ae.Kind, "error", ae.Msg)
		httpserver.RespondError(w, http.StatusInternalServerError, "Something went wrong.")
	}
}
