package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourify/tourify/internal/observability"
	"github.com/tourify/tourify/internal/shared"
)

func sessionRequest(t *testing.T, method, target string, userID uuid.UUID) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	sess := &shared.Session{ID: "test-session"}
	sess.SetUser(userID.String())
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequireAnyGrants(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	mw := Middleware{Service: svc}
	userID := uuid.New()

	_, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: userID, RoleName: RoleTourManager,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.With(mw.RequireAny(PermToursView)).Get("/tours", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours", userID))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyDeniesWithoutGrant(t *testing.T) {
	svc := newTestService(newMockStore())
	mw := Middleware{Service: svc}

	r := chi.NewRouter()
	r.With(mw.RequireAny(PermToursView)).Get("/tours", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours", uuid.New()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient permissions")
}

func TestRequireAnyDeniesWithoutSession(t *testing.T) {
	svc := newTestService(newMockStore())
	mw := Middleware{Service: svc}

	r := chi.NewRouter()
	r.With(mw.RequireAny(PermToursView)).Get("/tours", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tours", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStoreFailureAnswers503NotForbidden(t *testing.T) {
	store := newMockStore()
	store.listActiveErr = errors.New("connection refused")
	svc := newTestService(store)
	mw := Middleware{Service: svc}

	r := chi.NewRouter()
	r.With(mw.RequireAny(PermToursView)).Get("/tours", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours", uuid.New()))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "insufficient")
}

func TestTourScopedGrantHonoredViaURLParam(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	mw := Middleware{Service: svc}
	userID := uuid.New()
	tourA := uuid.New()
	tourB := uuid.New()

	_, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: userID, RoleName: RoleCrewChief, TourID: &tourA,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.With(mw.RequireAll(PermStaffManage)).Get("/tours/{tourID}/staff", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours/"+tourA.String()+"/staff", userID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours/"+tourB.String()+"/staff", userID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireTourAccess(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	mw := Middleware{Service: svc}
	userID := uuid.New()
	owned := uuid.New()
	store.owned[userID] = []uuid.UUID{owned}

	r := chi.NewRouter()
	r.Route("/tours/{tourID}", func(r chi.Router) {
		r.Use(mw.RequireTourAccess())
		r.Get("/", okHandler)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours/"+owned.String()+"/", userID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours/"+uuid.NewString()+"/", userID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours/not-a-uuid/", userID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPermissionContextStashedForHandlers(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	mw := Middleware{Service: svc}
	userID := uuid.New()

	_, err := svc.AssignRole(context.Background(), AssignInput{
		UserID: userID, RoleName: RoleFinancialManager,
	})
	require.NoError(t, err)

	var captured *PermissionContext
	r := chi.NewRouter()
	r.With(mw.RequireAny(PermAnalyticsView)).Get("/analytics", func(w http.ResponseWriter, r *http.Request) {
		captured = PermissionsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/analytics", userID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.True(t, captured.Global.Has(PermAnalyticsExport))
}

func TestRequireTourAccessRecordsGrantedDecision(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	metrics := observability.NewMetrics()
	mw := Middleware{Service: svc, Metrics: metrics}
	userID := uuid.New()
	owned := uuid.New()
	store.owned[userID] = []uuid.UUID{owned}

	r := chi.NewRouter()
	r.Route("/tours/{tourID}", func(r chi.Router) {
		r.Use(mw.RequireTourAccess())
		r.Get("/", okHandler)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(t, http.MethodGet, "/tours/"+owned.String()+"/", userID))
	require.Equal(t, http.StatusOK, rec.Code)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `tourify_authz_decisions_total{outcome="granted"} 1`)
}
