package tours

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tourify/tourify/internal/platform/httpx"
	"github.com/tourify/tourify/internal/rbac"
	"github.com/tourify/tourify/internal/shared"
)

// SubrouterMounter mounts a nested handler under a tour route.
type SubrouterMounter interface {
	MountRoutes(r chi.Router)
}

// Handler manages tour HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        rbac.Middleware
	events    SubrouterMounter
	validator *validator.Validate
}

// NewHandler creates a new handler. The events handler, when provided, is
// mounted under /{tourID}/events so it inherits the tour access check.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware, events SubrouterMounter) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		events:    events,
		validator: validator.New(),
	}
}

// MountRoutes registers routes on the router. Routes with a {tourID}
// parameter additionally require access to that specific tour.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(rbac.PermToursView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(rbac.PermToursCreate))
		r.Post("/", h.create)
	})
	r.Route("/{tourID}", func(r chi.Router) {
		r.Use(h.mw.RequireTourAccess())
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequireAny(rbac.PermToursView))
			r.Get("/", h.show)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequireAll(rbac.PermToursEdit))
			r.Put("/", h.update)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequireAll(rbac.PermToursDelete))
			r.Delete("/", h.remove)
		})
		if h.events != nil {
			r.Route("/events", h.events.MountRoutes)
		}
	})
}

type tourRequest struct {
	Name          string     `json:"name" validate:"required,max=200"`
	Description   string     `json:"description" validate:"max=2000"`
	TourManagerID *string    `json:"tour_manager_id,omitempty" validate:"omitempty,uuid"`
	ArtistID      *string    `json:"artist_id,omitempty" validate:"omitempty,uuid"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Status        string     `json:"status,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := Status(raw)
		if !s.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status")
			return
		}
		status = &s
	}
	list, err := h.service.ListForUser(r.Context(), userID, status)
	if err != nil {
		h.logger.Error("list tours", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if list == nil {
		list = []Tour{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tours": list})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tourID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tour id")
		return
	}
	tour, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tour": tour})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	managerID, err := parseOptionalUUID(req.TourManagerID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tour_manager_id")
		return
	}
	artistID, err := parseOptionalUUID(req.ArtistID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid artist_id")
		return
	}

	tour, err := h.service.Create(r.Context(), CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		TourManagerID: managerID,
		ArtistID:      artistID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		CreatedBy:     userID,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"tour": tour})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "tourID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tour id")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	managerID, err := parseOptionalUUID(req.TourManagerID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tour_manager_id")
		return
	}
	artistID, err := parseOptionalUUID(req.ArtistID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid artist_id")
		return
	}
	tour, err := h.service.Update(r.Context(), id, userID, UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		TourManagerID: managerID,
		ArtistID:      artistID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        Status(req.Status),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tour": tour})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "tourID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tour id")
		return
	}
	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (tourRequest, bool) {
	var req tourRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "tour not found")
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidDates), errors.Is(err, ErrNameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("tour request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func currentUserID(r *http.Request) (uuid.UUID, bool) {
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

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
