package rbac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourify/tourify/internal/shared"
)

func newTestHandler(store Store) (*Handler, *Service) {
	svc := newTestService(store)
	mw := Middleware{Service: svc}
	logger := slog.New(slog.DiscardHandler)
	return NewHandler(logger, svc, mw), svc
}

func mountTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/rbac", h.MountRoutes)
	return r
}

func adminUser(t *testing.T, svc *Service) uuid.UUID {
	t.Helper()
	adminID := uuid.New()
	_, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: adminID, RoleName: RoleSuperAdmin,
	})
	require.NoError(t, err)
	return adminID
}

func TestListPermissionsEndpoint(t *testing.T) {
	h, svc := newTestHandler(newMockStore())
	r := mountTestRouter(h)
	admin := adminUser(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/rbac/permissions", admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Permissions []Permission `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Permissions, len(Permissions()))
}

func TestCatalogEndpointsRequireAdminRoles(t *testing.T) {
	h, _ := newTestHandler(newMockStore())
	r := mountTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/rbac/roles", uuid.New()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRolePermissionsEndpoint(t *testing.T) {
	h, svc := newTestHandler(newMockStore())
	r := mountTestRouter(h)
	admin := adminUser(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/rbac/roles/crew_chief/permissions", admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, RoleCrewChief, body.Role)
	assert.Contains(t, body.Permissions, PermStaffManage)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/rbac/roles/roadie/permissions", admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func postJSON(t *testing.T, target string, payload any, userID uuid.UUID) *http.Request {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	sess := &shared.Session{ID: "test-session"}
	sess.SetUser(userID.String())
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestAssignEndpoint(t *testing.T) {
	store := newMockStore()
	h, svc := newTestHandler(store)
	r := mountTestRouter(h)
	admin := adminUser(t, svc)
	target := uuid.New()
	tourID := uuid.NewString()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON(t, "/rbac/assignments", map[string]any{
		"user_id":   target.String(),
		"role_name": "crew_chief",
		"tour_id":   tourID,
	}, admin))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Assignment TourRole `json:"assignment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, target, body.Assignment.UserID)
	require.NotNil(t, body.Assignment.AssignedBy)
	assert.Equal(t, admin, *body.Assignment.AssignedBy)
}

func TestAssignEndpointRejectsUnknownRole(t *testing.T) {
	h, svc := newTestHandler(newMockStore())
	r := mountTestRouter(h)
	admin := adminUser(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON(t, "/rbac/assignments", map[string]any{
		"user_id":   uuid.NewString(),
		"role_name": "roadie",
	}, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignEndpointRejectsPastExpiry(t *testing.T) {
	h, svc := newTestHandler(newMockStore())
	r := mountTestRouter(h)
	admin := adminUser(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON(t, "/rbac/assignments", map[string]any{
		"user_id":    uuid.NewString(),
		"role_name":  "vendor",
		"expires_at": "2020-01-01T00:00:00Z",
	}, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevokeEndpoint(t *testing.T) {
	store := newMockStore()
	h, svc := newTestHandler(store)
	r := mountTestRouter(h)
	admin := adminUser(t, svc)
	target := uuid.New()

	granted, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: target, RoleName: RoleVendor,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodDelete, fmt.Sprintf("/rbac/assignments/%d", granted.ID), admin))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodDelete, "/rbac/assignments/9999", admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUserAssignmentsEndpoint(t *testing.T) {
	store := newMockStore()
	h, svc := newTestHandler(store)
	r := mountTestRouter(h)
	admin := adminUser(t, svc)
	target := uuid.New()

	_, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: target, RoleName: RoleArtist,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/rbac/users/"+target.String()+"/assignments", admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Assignments []TourRole `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Assignments, 1)
	assert.Equal(t, RoleArtist, body.Assignments[0].RoleName)
}

func TestMyPermissionsEndpoint(t *testing.T) {
	store := newMockStore()
	h, svc := newTestHandler(store)
	r := mountTestRouter(h)
	userID := uuid.New()
	tourID := uuid.New()

	_, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: userID, RoleName: RoleCrewMember, TourID: &tourID,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/rbac/me/permissions", userID))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		UserID  string              `json:"user_id"`
		Global  []string            `json:"global"`
		PerTour map[string][]string `json:"per_tour"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body.UserID)
	assert.Empty(t, body.Global)
	assert.Contains(t, body.PerTour[tourID.String()], PermCommunicationsSend)
}

func TestAssignmentEndpointsRequireRoleAdmin(t *testing.T) {
	h, svc := newTestHandler(newMockStore())
	r := mountTestRouter(h)

	// tour_manager holds every non-admin permission and must still be refused
	manager := uuid.New()
	_, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: manager, RoleName: RoleTourManager,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON(t, "/rbac/assignments", map[string]any{
		"user_id":   uuid.NewString(),
		"role_name": "vendor",
	}, manager))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodDelete, "/rbac/assignments/1", manager))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
