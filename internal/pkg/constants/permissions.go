package constants

// Permission keys checked by the authorization middleware.
const (
	ViewData        = "view_data"
	InviteUser      = "invite_user"
	RemoveUser      = "remove_user"
	AssignRole      = "assign_role"
	UpdateOrg       = "update_org"
	CreateWorkflow  = "create_workflow"
	ManageWorkflows = "manage_workflows"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:        {Viewer, User, Manager, Admin},
	InviteUser:      {Admin},
	RemoveUser:      {Admin},
	AssignRole:      {Admin},
	UpdateOrg:       {Admin},
	CreateWorkflow:  {Manager, Admin},
	ManageWorkflows: {Manager, Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RolePermissions returns the permission keys a role grants, for seeding the
// roles table's jsonb column.
func RolePermissions(role string) []string {
	perms := make([]string, 0, len(PermissionRoles))
	for _, p := range []string{ViewData, InviteUser, RemoveUser, AssignRole, UpdateOrg, CreateWorkflow, ManageWorkflows} {
		if AllowedRole(p, role) {
			perms = append(perms, p)
		}
	}
	return perms
}
