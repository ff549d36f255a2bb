package authz

// Wildcard is the capability key that covers every capability not explicitly
// listed in a profile. It is subject to the same narrowing rules as any other
// capability key.
const Wildcard = "*"

// Route keys. Handlers reference these constants rather than literals so that
// route usage across the codebase stays checkable against the catalog.
const (
	RouteStudentDashboard    = "route.student.dashboard"
	RouteStudentComplaints   = "route.student.complaints"
	RouteWardenDashboard     = "route.warden.dashboard"
	RouteWardenAttendance    = "route.warden.attendance"
	RouteAdminDashboard      = "route.admin.dashboard"
	RouteAdminUsers          = "route.admin.users"
	RouteAdminOverrides      = "route.admin.overrides"
	RouteAdminAudit          = "route.admin.audit"
	RouteSecurityGate        = "route.security.gate"
	RouteSecurityVisitors    = "route.security.visitors"
	RouteSupervisorHostels   = "route.supervisor.hostels"
	RouteSupervisorInventory = "route.supervisor.inventory"
	RouteGymkhanaDashboard   = "route.gymkhana.dashboard"
	RouteGymkhanaEvents      = "route.gymkhana.events"
	RouteGymkhanaMegaEvents  = "route.gymkhana.megaEvents"
)

// Capability keys.
const (
	CapEventsView       = "cap.events.view"
	CapEventsCreate     = "cap.events.create"
	CapEventsApprove    = "cap.events.approve"
	CapAttendanceMark   = "cap.attendance.mark"
	CapAttendanceEdit   = "cap.attendance.edit"
	CapVisitorsManage   = "cap.visitors.manage"
	CapComplaintsManage = "cap.complaints.manage"
	CapHostelsSwitch    = "cap.hostels.switch"
	CapUsersManage      = "cap.users.manage"
	CapOverridesEdit    = "cap.authz.overrides.edit"
	CapAuditView        = "cap.authz.audit.view"
)

// Constraint keys.
const (
	ConstraintEventsMaxApprovalAmount = "constraint.events.maxApprovalAmount"
	ConstraintEventsVenues            = "constraint.events.venues"
	ConstraintAttendanceEditWindow    = "constraint.attendance.editWindowHours"
	ConstraintLeaveMaxConsecutiveDays = "constraint.leave.maxConsecutiveDays"
	ConstraintVisitorsMaxActive       = "constraint.visitors.maxActive"
	ConstraintHostelsAllowed          = "constraint.hostels.allowed"
)

// RouteKeys enumerates every route key the catalog may grant.
func RouteKeys() []string {
	return []string{
		RouteStudentDashboard,
		RouteStudentComplaints,
		RouteWardenDashboard,
		RouteWardenAttendance,
		RouteAdminDashboard,
		RouteAdminUsers,
		RouteAdminOverrides,
		RouteAdminAudit,
		RouteSecurityGate,
		RouteSecurityVisitors,
		RouteSupervisorHostels,
		RouteSupervisorInventory,
		RouteGymkhanaDashboard,
		RouteGymkhanaEvents,
		RouteGymkhanaMegaEvents,
	}
}

// CapabilityKeys enumerates every capability key the catalog may grant,
// excluding the wildcard.
func CapabilityKeys() []string {
	return []string{
		CapEventsView,
		CapEventsCreate,
		CapEventsApprove,
		CapAttendanceMark,
		CapAttendanceEdit,
		CapVisitorsManage,
		CapComplaintsManage,
		CapHostelsSwitch,
		CapUsersManage,
		CapOverridesEdit,
		CapAuditView,
	}
}

// ConstraintKeys enumerates every constraint key the catalog may populate.
func ConstraintKeys() []string {
	return []string{
		ConstraintEventsMaxApprovalAmount,
		ConstraintEventsVenues,
		ConstraintAttendanceEditWindow,
		ConstraintLeaveMaxConsecutiveDays,
		ConstraintVisitorsMaxActive,
		ConstraintHostelsAllowed,
	}
}
