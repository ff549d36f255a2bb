package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanRoute(t *testing.T) {
	effective := Effective{
		Routes: map[string]bool{
			RouteGymkhanaEvents:     true,
			RouteGymkhanaMegaEvents: false,
		},
	}

	assert.True(t, effective.CanRoute(RouteGymkhanaEvents))
	assert.False(t, effective.CanRoute(RouteGymkhanaMegaEvents))
	assert.False(t, effective.CanRoute(RouteAdminDashboard))
	assert.False(t, effective.CanRoute(""))
	assert.False(t, effective.CanRoute("   "))
	assert.True(t, effective.CanRoute("  "+RouteGymkhanaEvents+"  "))
}

func TestCanRouteEmptySnapshot(t *testing.T) {
	assert.False(t, Effective{}.CanRoute(RouteGymkhanaEvents))
	assert.False(t, Effective{}.CanCapability(CapEventsView))
}

func TestCanCapabilityExplicitBeatsWildcard(t *testing.T) {
	effective := Effective{
		Capabilities: map[string]bool{
			Wildcard:        true,
			CapEventsCreate: false,
		},
	}

	// An explicit deny wins even though the wildcard grants everything else.
	assert.False(t, effective.CanCapability(CapEventsCreate))
	assert.True(t, effective.CanCapability(CapEventsView))
	assert.True(t, effective.CanCapability(CapUsersManage))
}

func TestCanCapabilityWildcardDeniedIsNoFallback(t *testing.T) {
	effective := Effective{
		Capabilities: map[string]bool{
			Wildcard:      false,
			CapEventsView: true,
		},
	}

	assert.True(t, effective.CanCapability(CapEventsView))
	assert.False(t, effective.CanCapability(CapEventsCreate))
}

func TestCanCapabilityNoWildcardDefaultsFalse(t *testing.T) {
	effective := Effective{
		Capabilities: map[string]bool{
			CapEventsView: true,
		},
	}

	assert.True(t, effective.CanCapability(CapEventsView))
	assert.False(t, effective.CanCapability(CapEventsApprove))
	assert.False(t, effective.CanCapability(""))
}

func TestCanAnyCapability(t *testing.T) {
	effective := Effective{
		Capabilities: map[string]bool{
			CapEventsView:   true,
			CapEventsCreate: false,
		},
	}

	assert.True(t, effective.CanAnyCapability([]string{CapEventsCreate, CapEventsView}))
	assert.False(t, effective.CanAnyCapability([]string{CapEventsCreate, CapUsersManage}))
	assert.False(t, effective.CanAnyCapability(nil))
	assert.False(t, effective.CanAnyCapability([]string{}))
}

func TestCanAllCapabilities(t *testing.T) {
	effective := Effective{
		Capabilities: map[string]bool{
			CapEventsView:     true,
			CapEventsCreate:   true,
			CapAttendanceMark: false,
		},
	}

	assert.True(t, effective.CanAllCapabilities([]string{CapEventsView, CapEventsCreate}))
	assert.False(t, effective.CanAllCapabilities([]string{CapEventsView, CapAttendanceMark}))

	// An empty requirement list is a configuration mistake, not a grant.
	assert.False(t, effective.CanAllCapabilities(nil))
	assert.False(t, effective.CanAllCapabilities([]string{}))
}

func TestConstraintValue(t *testing.T) {
	effective := Effective{
		Constraints: map[string]any{
			ConstraintEventsMaxApprovalAmount: 5000,
			ConstraintEventsVenues:            []any{},
			ConstraintVisitorsMaxActive:       nil,
		},
	}

	assert.Equal(t, 5000, effective.ConstraintValue(ConstraintEventsMaxApprovalAmount, 0))
	assert.Equal(t, []any{}, effective.ConstraintValue(ConstraintEventsVenues, "fallback"))

	// A key explicitly set to nil has an entry; the fallback stays unused.
	assert.Nil(t, effective.ConstraintValue(ConstraintVisitorsMaxActive, 99))

	assert.Equal(t, 14, effective.ConstraintValue(ConstraintLeaveMaxConsecutiveDays, 14))
	assert.Equal(t, "fb", effective.ConstraintValue("", "fb"))
}

func TestConstraintInt(t *testing.T) {
	effective := Effective{
		Constraints: map[string]any{
			ConstraintEventsMaxApprovalAmount: float64(2500),
			ConstraintAttendanceEditWindow:    48,
			ConstraintVisitorsMaxActive:       "fifty",
		},
	}

	assert.Equal(t, int64(2500), effective.ConstraintInt(ConstraintEventsMaxApprovalAmount, 0))
	assert.Equal(t, int64(48), effective.ConstraintInt(ConstraintAttendanceEditWindow, 0))
	assert.Equal(t, int64(7), effective.ConstraintInt(ConstraintVisitorsMaxActive, 7))
	assert.Equal(t, int64(7), effective.ConstraintInt(ConstraintLeaveMaxConsecutiveDays, 7))
}

func TestGymkhanaEndToEnd(t *testing.T) {
	catalog := DefaultCatalog()

	effective := BuildEffective(catalog, RoleGymkhana, Override{
		DenyRoutes:       []string{RouteGymkhanaMegaEvents},
		DenyCapabilities: []string{CapEventsCreate},
		Constraints: []ConstraintEntry{
			{Key: ConstraintEventsMaxApprovalAmount, Value: 2000},
		},
	})

	assert.True(t, effective.CanRoute(RouteGymkhanaEvents))
	assert.False(t, effective.CanRoute(RouteGymkhanaMegaEvents))
	assert.True(t, effective.CanCapability(CapEventsView))
	assert.False(t, effective.CanCapability(CapEventsCreate))
	assert.Equal(t, int64(2000), effective.ConstraintInt(ConstraintEventsMaxApprovalAmount, 0))
	assert.Equal(t, []any{"auditorium", "sports_ground"}, effective.ConstraintValue(ConstraintEventsVenues, nil))
}

func TestAdminRaisedApprovalAmountEndToEnd(t *testing.T) {
	catalog := DefaultCatalog()

	effective := BuildEffective(catalog, RoleAdmin, Override{
		Constraints: []ConstraintEntry{
			{Key: ConstraintEventsMaxApprovalAmount, Value: 25000},
		},
	})

	assert.True(t, effective.CanCapability(CapEventsApprove))
	assert.Equal(t, int64(25000), effective.ConstraintInt(ConstraintEventsMaxApprovalAmount, 0))
}
