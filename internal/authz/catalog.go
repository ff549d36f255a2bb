package authz

// Profile is the baseline authorization granted to a role. Profiles are static
// configuration: the catalog never mutates them after construction and hands
// out copies only.
type Profile struct {
	Routes       map[string]bool `json:"routes"`
	Capabilities map[string]bool `json:"capabilities"`
	Constraints  map[string]any  `json:"constraints"`
}

// Catalog holds the baseline profile for every known role. It is constructed
// once at process start and injected wherever resolution happens; tests build
// synthetic catalogs the same way.
type Catalog struct {
	profiles map[Role]Profile
}

// NewCatalog builds a catalog from the supplied profiles. The input is copied,
// so callers cannot alias into the catalog afterwards.
func NewCatalog(profiles map[Role]Profile) *Catalog {
	owned := make(map[Role]Profile, len(profiles))
	for role, p := range profiles {
		owned[role] = cloneProfile(p)
	}
	return &Catalog{profiles: owned}
}

// Known reports whether the role exists in the catalog. The mutation boundary
// uses this to reject overrides targeting unknown roles; evaluation never does,
// it falls through to the deny-all profile instead.
func (c *Catalog) Known(role Role) bool {
	_, ok := c.profiles[role]
	return ok
}

// Profile returns a copy of the role's baseline profile. An unrecognized role
// yields the deny-all profile rather than an error: role values come from
// trusted session data, and denying everything is the safe answer when they
// do not.
func (c *Catalog) Profile(role Role) Profile {
	p, ok := c.profiles[role]
	if !ok {
		return denyAllProfile()
	}
	return cloneProfile(p)
}

// EmptyOverride is the canonical empty override, used as the post-state of a
// reset and as the resolution input when a subject has no stored override.
func (c *Catalog) EmptyOverride() Override {
	return Override{}
}

func (c *Catalog) profile(role Role) (Profile, bool) {
	p, ok := c.profiles[role]
	return p, ok
}

func denyAllProfile() Profile {
	return Profile{
		Routes:       map[string]bool{},
		Capabilities: map[string]bool{},
		Constraints:  map[string]any{},
	}
}

func cloneProfile(p Profile) Profile {
	out := Profile{
		Routes:       make(map[string]bool, len(p.Routes)),
		Capabilities: make(map[string]bool, len(p.Capabilities)),
		Constraints:  make(map[string]any, len(p.Constraints)),
	}
	for k, v := range p.Routes {
		out.Routes[k] = v
	}
	for k, v := range p.Capabilities {
		out.Capabilities[k] = v
	}
	for k, v := range p.Constraints {
		out.Constraints[k] = cloneValue(v)
	}
	return out
}

// DefaultCatalog returns the production role table.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[Role]Profile{
		RoleStudent: {
			Routes: map[string]bool{
				RouteStudentDashboard:  true,
				RouteStudentComplaints: true,
			},
			Capabilities: map[string]bool{
				CapEventsView: true,
			},
			Constraints: map[string]any{},
		},
		RoleWarden: {
			Routes: map[string]bool{
				RouteWardenDashboard:  true,
				RouteWardenAttendance: true,
			},
			Capabilities: map[string]bool{
				CapEventsView:       true,
				CapAttendanceMark:   true,
				CapAttendanceEdit:   true,
				CapComplaintsManage: true,
			},
			Constraints: map[string]any{
				ConstraintAttendanceEditWindow:    48,
				ConstraintLeaveMaxConsecutiveDays: 14,
			},
		},
		RoleAssociateWarden: {
			Routes: map[string]bool{
				RouteWardenDashboard:  true,
				RouteWardenAttendance: true,
			},
			Capabilities: map[string]bool{
				CapEventsView:     true,
				CapAttendanceMark: true,
			},
			Constraints: map[string]any{
				ConstraintAttendanceEditWindow: 24,
			},
		},
		RoleAdmin: {
			Routes: map[string]bool{
				RouteAdminDashboard: true,
				RouteAdminUsers:     true,
				RouteAdminOverrides: true,
				RouteAdminAudit:     true,
			},
			Capabilities: map[string]bool{
				Wildcard: true,
			},
			Constraints: map[string]any{
				ConstraintEventsMaxApprovalAmount: 10000,
			},
		},
		RoleSecurity: {
			Routes: map[string]bool{
				RouteSecurityGate:     true,
				RouteSecurityVisitors: true,
			},
			Capabilities: map[string]bool{
				CapVisitorsManage: true,
			},
			Constraints: map[string]any{
				ConstraintVisitorsMaxActive: 50,
			},
		},
		RoleSuperAdmin: {
			Routes: map[string]bool{
				RouteAdminDashboard:      true,
				RouteAdminUsers:          true,
				RouteAdminOverrides:      true,
				RouteAdminAudit:          true,
				RouteSupervisorHostels:   true,
				RouteSupervisorInventory: true,
			},
			Capabilities: map[string]bool{
				Wildcard: true,
			},
			Constraints: map[string]any{},
		},
		RoleHostelSupervisor: {
			Routes: map[string]bool{
				RouteSupervisorHostels:   true,
				RouteSupervisorInventory: true,
			},
			Capabilities: map[string]bool{
				CapHostelsSwitch:  true,
				CapAttendanceMark: true,
			},
			Constraints: map[string]any{
				// Populated per subject via overrides; empty means no hostel yet.
				ConstraintHostelsAllowed: []any{},
			},
		},
		RoleHostelGate: {
			Routes: map[string]bool{
				RouteSecurityGate: true,
			},
			Capabilities: map[string]bool{
				CapVisitorsManage: true,
			},
			Constraints: map[string]any{},
		},
		RoleGymkhana: {
			Routes: map[string]bool{
				RouteGymkhanaDashboard:  true,
				RouteGymkhanaEvents:     true,
				RouteGymkhanaMegaEvents: true,
			},
			Capabilities: map[string]bool{
				CapEventsView:   true,
				CapEventsCreate: true,
			},
			Constraints: map[string]any{
				ConstraintEventsMaxApprovalAmount: 5000,
				ConstraintEventsVenues:            []any{"auditorium", "sports_ground"},
			},
		},
	})
}
