package domain

import "time"

// Category is a read-only row from the externally managed category catalog.
type Category struct {
	ID                     int64
	Slug                   string
	Name                   string
	EligibleRoles          []Role
	CrisisDetectionEnabled bool
	SLAResponseHours       int
	Active                 bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// RoleEligible reports whether the role may be routed tickets in this category.
func (c *Category) RoleEligible(role Role) bool {
	for _, eligible := range c.EligibleRoles {
		if eligible == role {
			return true
		}
	}
	return false
}
