package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/hostelcore/hostelcore/internal/auth"
	"github.com/hostelcore/hostelcore/internal/authz"
	"github.com/hostelcore/hostelcore/internal/shared"
	_ "github.com/hostelcore/hostelcore/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

type stubOverrides struct {
	override authz.Override
}

func (s *stubOverrides) ForUser(ctx context.Context, userID int64, role authz.Role) (authz.Override, error) {
	return s.override, nil
}

func newRouter(t *testing.T, repo auth.Repository, overrides auth.OverrideSource) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	handler := auth.NewHandler(nil, auth.NewService(repo), authz.DefaultCatalog(), overrides, sessionManager, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			req = req.WithContext(ctx)
			next.ServeHTTP(&committingWriter{ResponseWriter: w, manager: sessionManager, sess: sess, ctx: ctx, req: req}, req)
		})
	})
	handler.MountRoutes(r)
	return r, sessionManager
}

// committingWriter flushes the session before the first response byte, the
// same ordering the production middleware guarantees.
type committingWriter struct {
	http.ResponseWriter
	manager       *shared.SessionManager
	sess          *shared.Session
	ctx           context.Context
	req           *http.Request
	headerWritten bool
}

func (w *committingWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *committingWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func activeUser(t *testing.T, role string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           7,
		Email:        "user@test.local",
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	}
}

func TestLoginSynchronizesSnapshot(t *testing.T) {
	overrides := &stubOverrides{override: authz.Override{
		DenyCapabilities: []string{authz.CapEventsCreate},
	}}
	router, sessionManager := newRouter(t, &stubRepo{user: activeUser(t, "gymkhana")}, overrides)

	body := `{"email":"User@Test.Local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"role":"gymkhana"`) {
		t.Fatalf("expected role in response, got %s", res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"roleName":"Gymkhana"`) {
		t.Fatalf("expected display name in response, got %s", res.Body.String())
	}

	cookie := sessionCookie(t, res)
	sess, err := sessionManager.LoadByID(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("load session by id: %v", err)
	}
	if sess.User() != "7" {
		t.Fatalf("expected user 7 in session, got %q", sess.User())
	}
	snap, ok := authz.FromSession(sess)
	if !ok {
		t.Fatalf("expected snapshot in session")
	}
	if snap.Role != authz.RoleGymkhana {
		t.Fatalf("expected gymkhana snapshot, got %s", snap.Role)
	}
	if snap.Effective.CanCapability(authz.CapEventsCreate) {
		t.Fatalf("expected override deny to survive the flush")
	}
	if !snap.Effective.CanCapability(authz.CapEventsView) {
		t.Fatalf("expected baseline capability to remain")
	}
}

func TestLoginReissuesSessionID(t *testing.T) {
	router, sessionManager := newRouter(t, &stubRepo{user: activeUser(t, "gymkhana")}, &stubOverrides{})

	// A real pre-login session whose ID the client already knows.
	ctx := context.Background()
	preLogin := &shared.Session{ID: "pre-login-id"}
	preLogin.Set(shared.CSRFSessionKey, "tok")
	if err := sessionManager.Save(ctx, preLogin); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	body := `{"email":"user@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "pre-login-id"})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	cookie := sessionCookie(t, res)
	if cookie.Value == "pre-login-id" {
		t.Fatalf("session ID not re-issued at login")
	}
	if _, err := sessionManager.LoadByID(ctx, "pre-login-id"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected pre-login session to be deleted, got %v", err)
	}
	sess, err := sessionManager.LoadByID(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("load session by id: %v", err)
	}
	if sess.User() != "7" {
		t.Fatalf("expected user 7 under the re-issued ID, got %q", sess.User())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, _ := newRouter(t, &stubRepo{user: activeUser(t, "gymkhana")}, &stubOverrides{})

	body := `{"email":"user@test.local","password":"wrongpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, "warden")
	user.IsActive = false
	router, _ := newRouter(t, &stubRepo{user: user}, &stubOverrides{})

	body := `{"email":"user@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginUnknownRoleGetsDenyAllSnapshot(t *testing.T) {
	router, sessionManager := newRouter(t, &stubRepo{user: activeUser(t, "registrar")}, &stubOverrides{})

	body := `{"email":"user@test.local","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	cookie := sessionCookie(t, res)
	sess, err := sessionManager.LoadByID(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("load session by id: %v", err)
	}
	snap, ok := authz.FromSession(sess)
	if !ok {
		t.Fatalf("expected snapshot in session")
	}
	if snap.Effective.CanRoute(authz.RouteStudentDashboard) || snap.Effective.CanCapability(authz.CapEventsView) {
		t.Fatalf("expected deny-all snapshot for unknown role")
	}
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}
