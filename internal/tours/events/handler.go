package events

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

// Handler manages tour event HTTP endpoints. It is mounted under
// /tours/{tourID}/events, so tour access is already enforced by the
// parent route.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        rbac.Middleware
	validator *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(rbac.PermEventsView))
		r.Get("/", h.list)
		r.Get("/{eventID}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(rbac.PermEventsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(rbac.PermEventsEdit))
		r.Put("/{eventID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAll(rbac.PermEventsDelete))
		r.Delete("/{eventID}", h.remove)
	})
}

type eventRequest struct {
	Name         string    `json:"name" validate:"required,max=200"`
	Description  string    `json:"description" validate:"max=2000"`
	VenueName    string    `json:"venue_name" validate:"max=200"`
	VenueAddress string    `json:"venue_address" validate:"max=500"`
	EventDate    time.Time `json:"event_date" validate:"required"`
	Status       string    `json:"status,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tourID, ok := h.pathUUID(w, r, "tourID", "invalid tour id")
	if !ok {
		return
	}
	list, err := h.service.ListForTour(r.Context(), tourID)
	if err != nil {
		h.logger.Error("list tour events", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if list == nil {
		list = []TourEvent{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": list})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	tourID, ok := h.pathUUID(w, r, "tourID", "invalid tour id")
	if !ok {
		return
	}
	id, ok := h.pathUUID(w, r, "eventID", "invalid event id")
	if !ok {
		return
	}
	event, err := h.service.Get(r.Context(), tourID, id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"event": event})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	tourID, ok := h.pathUUID(w, r, "tourID", "invalid tour id")
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	event, err := h.service.Create(r.Context(), CreateInput{
		TourID:       tourID,
		Name:         req.Name,
		Description:  req.Description,
		VenueName:    req.VenueName,
		VenueAddress: req.VenueAddress,
		EventDate:    req.EventDate,
		CreatedBy:    userID,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"event": event})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	tourID, ok := h.pathUUID(w, r, "tourID", "invalid tour id")
	if !ok {
		return
	}
	id, ok := h.pathUUID(w, r, "eventID", "invalid event id")
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	event, err := h.service.Update(r.Context(), tourID, id, userID, UpdateInput{
		Name:         req.Name,
		Description:  req.Description,
		VenueName:    req.VenueName,
		VenueAddress: req.VenueAddress,
		EventDate:    req.EventDate,
		Status:       Status(req.Status),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"event": event})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	tourID, ok := h.pathUUID(w, r, "tourID", "invalid tour id")
	if !ok {
		return
	}
	id, ok := h.pathUUID(w, r, "eventID", "invalid event id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), tourID, id, userID); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (eventRequest, bool) {
	var req eventRequest
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

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, param, detail string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", detail)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTourMismatch):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "tour event not found")
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("tour event request failed", slog.Any("error", err))
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
