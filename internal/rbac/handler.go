package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tourify/tourify/internal/platform/httpx"
	"github.com/tourify/tourify/internal/shared"
)

// Handler exposes the authorization admin API: the permission and role
// catalogs, role assignments and the caller's own effective permissions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers the authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermAdminRoles))
		r.Get("/permissions", h.listPermissions)
		r.Get("/roles", h.listRoles)
		r.Get("/roles/{role}/permissions", h.rolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(PermAdminRoles))
		r.Post("/assignments", h.assign)
		r.Delete("/assignments/{id}", h.revoke)
		r.Get("/users/{userID}/assignments", h.listUserAssignments)
	})
	r.Get("/me/permissions", h.myPermissions)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": Permissions()})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": Roles()})
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	perms, err := RolePermissions(role)
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        role,
		"permissions": perms.Names(),
	})
}

type assignRequest struct {
	UserID    string     `json:"user_id" validate:"required,uuid"`
	RoleName  string     `json:"role_name" validate:"required"`
	TourID    *string    `json:"tour_id,omitempty" validate:"omitempty,uuid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expires_at must be in the future")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user_id")
		return
	}
	input := AssignInput{
		UserID:    userID,
		RoleName:  req.RoleName,
		ExpiresAt: req.ExpiresAt,
	}
	if req.TourID != nil {
		tourID, err := uuid.Parse(*req.TourID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tour_id")
			return
		}
		input.TourID = &tourID
	}
	if actor, ok := h.currentUserID(r); ok {
		input.AssignedBy = &actor
	}

	granted, err := h.service.AssignRole(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
			return
		}
		h.logger.Error("assign role", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"assignment": granted})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid assignment id")
		return
	}
	var actor *uuid.UUID
	if current, ok := h.currentUserID(r); ok {
		actor = &current
	}
	if err := h.service.RevokeRole(r.Context(), id, actor); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "assignment not found")
			return
		}
		h.logger.Error("revoke role", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUserAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	assignments, err := h.service.ListUserRoles(r.Context(), userID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if assignments == nil {
		assignments = []TourRole{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	pctx, err := h.service.ContextFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("build permission context", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	perTour := make(map[string][]string, len(pctx.PerTour))
	for tourID, perms := range pctx.PerTour {
		perTour[tourID.String()] = perms.Names()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":  userID.String(),
		"global":   pctx.Global.Names(),
		"per_tour": perTour,
	})
}

func (h *Handler) currentUserID(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.User())
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
