package models

// Role identifies the user's position in the access hierarchy.
// Roles are totally ordered: technician < supervisor < admin.
type Role string

const (
	RoleTechnician Role = "technician"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

var roleRanks = map[Role]int{
	RoleTechnician: 1,
	RoleSupervisor: 2,
	RoleAdmin:      3,
}

// Rank returns the role's position in the hierarchy, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank() && other.Rank() > 0
}

// User is the authenticated user's profile as returned by the backend.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name,omitempty"`
}
