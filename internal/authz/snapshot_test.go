package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelcore/hostelcore/internal/shared"
)

func TestSyncRoundTrip(t *testing.T) {
	catalog := DefaultCatalog()
	sess := &shared.Session{ID: "sess-1"}
	override := Override{
		DenyCapabilities: []string{CapEventsCreate},
		Constraints: []ConstraintEntry{
			{Key: ConstraintEventsMaxApprovalAmount, Value: 2000},
		},
	}

	snap, err := Sync(sess, catalog, RoleGymkhana, override)
	require.NoError(t, err)
	assert.Equal(t, RoleGymkhana, snap.Role)
	assert.False(t, snap.Effective.CanCapability(CapEventsCreate))

	restored, ok := FromSession(sess)
	require.True(t, ok)
	assert.Equal(t, RoleGymkhana, restored.Role)
	assert.Equal(t, []string{CapEventsCreate}, restored.Override.DenyCapabilities)
	assert.True(t, restored.Effective.CanRoute(RouteGymkhanaEvents))
	assert.False(t, restored.Effective.CanCapability(CapEventsCreate))

	// Numbers survive the JSON round trip as float64; the typed reader
	// absorbs that.
	assert.Equal(t, int64(2000), restored.Effective.ConstraintInt(ConstraintEventsMaxApprovalAmount, 0))
}

func TestFromSessionWithoutSnapshot(t *testing.T) {
	_, ok := FromSession(&shared.Session{ID: "sess-2"})
	assert.False(t, ok)

	_, ok = FromSession(nil)
	assert.False(t, ok)
}

func TestFromSessionCorruptPayload(t *testing.T) {
	sess := &shared.Session{ID: "sess-3"}
	sess.SetAuthz([]byte("{not json"))

	_, ok := FromSession(sess)
	assert.False(t, ok)
}
