package domain

// Role enumerates the roles the identity provider may attach to a caller.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleCounselor Role = "COUNSELOR"
	RoleAdvisor   Role = "ADVISOR"
	RoleAdmin     Role = "ADMIN"
)

// StaffRoles lists the roles allowed to work tickets.
var StaffRoles = []Role{RoleCounselor, RoleAdvisor, RoleAdmin}

// IsStaff reports whether the role belongs to helpdesk staff.
func (r Role) IsStaff() bool {
	return r == RoleCounselor || r == RoleAdvisor || r == RoleAdmin
}

// PrincipalStatus represents the directory status of a caller.
type PrincipalStatus string

const (
	PrincipalStatusActive    PrincipalStatus = "ACTIVE"
	PrincipalStatusSuspended PrincipalStatus = "SUSPENDED"
)

// Principal is the authenticated caller supplied by the identity provider.
type Principal struct {
	ID     int64
	Role   Role
	Status PrincipalStatus
}

// IsActive reports whether the principal may act on the system.
func (p Principal) IsActive() bool {
	return p.Status == PrincipalStatusActive
}

// StaffMember is a read-only row from the external staff directory.
type StaffMember struct {
	ID     int64
	Name   string
	Email  string
	Role   Role
	Status PrincipalStatus
}
