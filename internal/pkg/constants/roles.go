package constants

// Role names, seeded at migration time. The set is fixed.
const (
	Admin   = "admin"
	Manager = "manager"
	User    = "user"
	Viewer  = "viewer"
)

// RoleDescriptions is the seed copy for the roles table.
var RoleDescriptions = map[string]string{
	Admin:   "Full control over the organization, its members, and workflows",
	Manager: "Creates and manages approval workflows",
	User:    "Participates in approval workflows",
	Viewer:  "Read-only access to organization data",
}

// SeedRoleNames returns the fixed role set in seed order.
func SeedRoleNames() []string {
	return []string{Admin, Manager, User, Viewer}
}

// IsValidRole reports whether name is one of the seeded roles.
func IsValidRole(name string) bool {
	_, ok := RoleDescriptions[name]
	return ok
}
