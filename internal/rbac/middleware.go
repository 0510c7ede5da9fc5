package rbac

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tourify/tourify/internal/observability"
	"github.com/tourify/tourify/internal/shared"
)

type permissionContextKey struct{}

// ContextWithPermissions stashes a built permission context in the request
// context so handlers reuse it instead of rebuilding per check.
func ContextWithPermissions(ctx context.Context, pctx *PermissionContext) context.Context {
	return context.WithValue(ctx, permissionContextKey{}, pctx)
}

// PermissionsFromContext extracts the permission context, if present.
func PermissionsFromContext(ctx context.Context) *PermissionContext {
	pctx, _ := ctx.Value(permissionContextKey{}).(*PermissionContext)
	return pctx
}

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequireAny ensures the current user has at least one of the required
// permissions. When the route carries a {tourID} parameter, tour-scoped
// grants for that tour count.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(normalized, func(pctx *PermissionContext, tourID *uuid.UUID) bool {
		return pctx.HasAnyPermission(normalized, tourID)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(normalized, func(pctx *PermissionContext, tourID *uuid.UUID) bool {
		return pctx.HasAllPermissions(normalized, tourID)
	})
}

// RequireTourAccess guards tour-scoped routes: the {tourID} URL parameter must
// name a tour the current user may access.
func (m Middleware) RequireTourAccess() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				m.deny(w)
				return
			}
			tourID, err := uuid.Parse(chi.URLParam(r, "tourID"))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			allowed, err := m.Service.CanAccessTour(r.Context(), userID, tourID)
			if err != nil {
				m.unavailable(w, r, err)
				return
			}
			if !allowed {
				m.deny(w)
				return
			}
			m.Metrics.RecordAuthzDecision("granted")
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) require(normalized []string, check func(*PermissionContext, *uuid.UUID) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				m.deny(w)
				return
			}
			pctx, err := m.Service.ContextFor(r.Context(), userID)
			if err != nil {
				m.unavailable(w, r, err)
				return
			}
			if check(pctx, tourScope(r)) {
				m.Metrics.RecordAuthzDecision("granted")
				next.ServeHTTP(w, r.WithContext(ContextWithPermissions(r.Context(), pctx)))
				return
			}
			if m.Logger != nil {
				m.Logger.Info("permission denied",
					slog.String("user_id", userID.String()),
					slog.String("path", r.URL.Path),
					slog.Any("required", normalized))
			}
			m.deny(w)
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return uuid.Nil, false
	}
	return id, true
}

func (m Middleware) deny(w http.ResponseWriter) {
	m.Metrics.RecordAuthzDecision("denied")
	http.Error(w, "insufficient permissions", http.StatusForbidden)
}

// unavailable answers 503, never 403: a store failure must stay
// distinguishable from a denial.
func (m Middleware) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	m.Metrics.RecordAuthzDecision("error")
	if m.Logger != nil {
		m.Logger.Error("authorization check failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
}

func tourScope(r *http.Request) *uuid.UUID {
	raw := chi.URLParam(r, "tourID")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
