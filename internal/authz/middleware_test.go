package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelcore/hostelcore/internal/shared"
)

func guardedRequest(t *testing.T, guard func(http.Handler) http.Handler, sess *shared.Session) int {
	t.Helper()
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	res := httptest.NewRecorder()
	guard(next).ServeHTTP(res, req)
	if res.Code == http.StatusNoContent && !reached {
		t.Fatalf("handler not reached despite success status")
	}
	return res.Code
}

func sessionWith(t *testing.T, role Role, override Override) *shared.Session {
	t.Helper()
	sess := &shared.Session{ID: "sess-mw"}
	_, err := Sync(sess, DefaultCatalog(), role, override)
	require.NoError(t, err)
	return sess
}

func TestRequireRoute(t *testing.T) {
	mw := Middleware{}
	sess := sessionWith(t, RoleGymkhana, Override{DenyRoutes: []string{RouteGymkhanaMegaEvents}})

	assert.Equal(t, http.StatusNoContent, guardedRequest(t, mw.RequireRoute(RouteGymkhanaEvents), sess))
	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireRoute(RouteGymkhanaMegaEvents), sess))
	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireRoute(RouteAdminDashboard), sess))
}

func TestRequireRouteWithoutSession(t *testing.T) {
	mw := Middleware{}

	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireRoute(RouteGymkhanaEvents), nil))
}

func TestRequireRouteWithoutSnapshot(t *testing.T) {
	mw := Middleware{}

	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireRoute(RouteGymkhanaEvents), &shared.Session{ID: "bare"}))
}

func TestRequireAny(t *testing.T) {
	mw := Middleware{}
	sess := sessionWith(t, RoleGymkhana, Override{DenyCapabilities: []string{CapEventsCreate}})

	assert.Equal(t, http.StatusNoContent, guardedRequest(t, mw.RequireAny(CapEventsCreate, CapEventsView), sess))
	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireAny(CapEventsCreate), sess))
	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireAny(), sess))
}

func TestRequireAll(t *testing.T) {
	mw := Middleware{}
	sess := sessionWith(t, RoleWarden, Override{})

	assert.Equal(t, http.StatusNoContent, guardedRequest(t, mw.RequireAll(CapAttendanceMark, CapAttendanceEdit), sess))
	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireAll(CapAttendanceMark, CapUsersManage), sess))
	// An empty requirement list must never grant access.
	assert.Equal(t, http.StatusForbidden, guardedRequest(t, mw.RequireAll(), sess))
}

func TestRequireAnyWildcardRole(t *testing.T) {
	mw := Middleware{}
	sess := sessionWith(t, RoleAdmin, Override{})

	assert.Equal(t, http.StatusNoContent, guardedRequest(t, mw.RequireAny(CapOverridesEdit), sess))
	assert.Equal(t, http.StatusNoContent, guardedRequest(t, mw.RequireAll(CapOverridesEdit, CapAuditView), sess))
}
