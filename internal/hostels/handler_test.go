package hostels_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelcore/hostelcore/internal/authz"
	"github.com/hostelcore/hostelcore/internal/hostels"
	"github.com/hostelcore/hostelcore/internal/shared"
	_ "github.com/hostelcore/hostelcore/testing"
)

type stubRepo struct {
	hostels map[int64]hostels.Hostel
	managed map[int64][]int64
}

func (s *stubRepo) ListManagedBy(ctx context.Context, userID int64) ([]hostels.Hostel, error) {
	var out []hostels.Hostel
	for _, id := range s.managed[userID] {
		out = append(out, s.hostels[id])
	}
	return out, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (hostels.Hostel, error) {
	h, ok := s.hostels[id]
	if !ok {
		return hostels.Hostel{}, shared.ErrNotFound
	}
	return h, nil
}

func (s *stubRepo) Manages(ctx context.Context, userID, hostelID int64) (bool, error) {
	for _, id := range s.managed[userID] {
		if id == hostelID {
			return true, nil
		}
	}
	return false, nil
}

type stubOverrides struct {
	override authz.Override
}

func (s *stubOverrides) ForUser(ctx context.Context, userID int64, role authz.Role) (authz.Override, error) {
	return s.override, nil
}

func supervisorSession(t *testing.T, catalog *authz.Catalog) *shared.Session {
	t.Helper()
	sess := &shared.Session{ID: "sess-1"}
	sess.SetUser("5")
	_, err := authz.Sync(sess, catalog, authz.RoleHostelSupervisor, authz.Override{})
	require.NoError(t, err)
	return sess
}

func newRouter(repo hostels.Repository, catalog *authz.Catalog, overrides hostels.OverrideSource, sess *shared.Session) http.Handler {
	handler := hostels.NewHandler(nil, hostels.NewService(repo), catalog, overrides, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func TestSwitchRefreshesSnapshot(t *testing.T) {
	catalog := authz.DefaultCatalog()
	sess := supervisorSession(t, catalog)
	repo := &stubRepo{
		hostels: map[int64]hostels.Hostel{3: {ID: 3, Code: "H3", Name: "Ganga"}},
		managed: map[int64][]int64{5: {3}},
	}
	overrides := &stubOverrides{override: authz.Override{
		Constraints: []authz.ConstraintEntry{
			{Key: authz.ConstraintHostelsAllowed, Value: []any{float64(3)}},
		},
	}}
	router := newRouter(repo, catalog, overrides, sess)

	req := httptest.NewRequest(http.MethodPost, "/hostels/switch", strings.NewReader(`{"hostelId":3}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"code":"H3"`)

	assert.Equal(t, "3", sess.Get(hostels.SessionHostelKey))
	snap, ok := authz.FromSession(sess)
	require.True(t, ok)
	assert.Equal(t, []any{float64(3)}, snap.Effective.ConstraintValue(authz.ConstraintHostelsAllowed, nil))
	assert.True(t, snap.Effective.CanCapability(authz.CapHostelsSwitch))
}

func TestSwitchToUnmanagedHostelIsForbidden(t *testing.T) {
	catalog := authz.DefaultCatalog()
	sess := supervisorSession(t, catalog)
	repo := &stubRepo{
		hostels: map[int64]hostels.Hostel{3: {ID: 3, Code: "H3", Name: "Ganga"}},
		managed: map[int64][]int64{5: {}},
	}
	router := newRouter(repo, catalog, &stubOverrides{}, sess)

	req := httptest.NewRequest(http.MethodPost, "/hostels/switch", strings.NewReader(`{"hostelId":3}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	// The snapshot keeps its pre-switch state.
	snap, ok := authz.FromSession(sess)
	require.True(t, ok)
	_, present := snap.Effective.Constraints[authz.ConstraintHostelsAllowed]
	assert.True(t, present)
	assert.Empty(t, sess.Get(hostels.SessionHostelKey))
}

func TestListManagedHostels(t *testing.T) {
	catalog := authz.DefaultCatalog()
	sess := supervisorSession(t, catalog)
	repo := &stubRepo{
		hostels: map[int64]hostels.Hostel{
			1: {ID: 1, Code: "H1", Name: "Kaveri"},
			2: {ID: 2, Code: "H2", Name: "Narmada"},
		},
		managed: map[int64][]int64{5: {1, 2}},
	}
	router := newRouter(repo, catalog, &stubOverrides{}, sess)

	req := httptest.NewRequest(http.MethodGet, "/hostels", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Kaveri")
	assert.Contains(t, res.Body.String(), "Narmada")
}
