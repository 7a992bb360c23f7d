package domain

// Capability names an action a staff member may perform.
type Capability string

const (
	CapViewReports      Capability = "reports:view"
	CapTransitionStatus Capability = "reports:transition"
	CapSetUrgency       Capability = "reports:urgency"
	CapAddNote          Capability = "reports:note"
	CapAssignReport     Capability = "reports:assign"
	CapManageUsers      Capability = "users:manage"
	CapViewMetrics      Capability = "metrics:view"
)

var roleCapabilities = map[UserRole][]Capability{
	UserRoleAdmin: {
		CapViewReports, CapTransitionStatus, CapSetUrgency, CapAddNote,
		CapAssignReport, CapManageUsers, CapViewMetrics,
	},
	UserRoleStaff:     {CapViewReports, CapTransitionStatus, CapSetUrgency, CapAddNote},
	UserRoleModerator: {CapViewReports, CapAddNote},
}

// Can reports whether the user is active and its role grants capability.
func (u *User) Can(capability Capability) bool {
	if !u.IsActive() {
		return false
	}
	for _, granted := range roleCapabilities[u.Role] {
		if granted == capability {
			return true
		}
	}
	return false
}

// CanBeAssigned reports whether reports may be assigned to the user.
func (u *User) CanBeAssigned() bool {
	return u.Can(CapTransitionStatus)
}
