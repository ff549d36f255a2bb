package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelcore/hostelcore/internal/shared"
	_ "github.com/hostelcore/hostelcore/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestLoadDiscardsUnknownCookieID(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "attacker-chosen-id"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen-id", sess.ID)

	require.NoError(t, sm.Save(context.Background(), sess))
	_, err = sm.LoadByID(context.Background(), "attacker-chosen-id")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLoadReturnsExistingSession(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	sess := &shared.Session{ID: "known-id"}
	sess.SetUser("4")
	require.NoError(t, sm.Save(ctx, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "known-id"})

	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "known-id", loaded.ID)
	assert.Equal(t, "4", loaded.User())
}

func TestRenewMovesSessionToFreshID(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	sess := &shared.Session{ID: "old-id"}
	sess.Set("theme", "dark")
	sess.SetUser("9")
	require.NoError(t, sm.Save(ctx, sess))

	require.NoError(t, sm.Renew(ctx, sess))
	assert.NotEqual(t, "old-id", sess.ID)
	require.NoError(t, sm.Save(ctx, sess))

	_, err := sm.LoadByID(ctx, "old-id")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	moved, err := sm.LoadByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "9", moved.User())
	assert.Equal(t, "dark", moved.Get("theme"))
}
