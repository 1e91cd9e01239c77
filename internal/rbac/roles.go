package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
	RoleViewer  = "viewer"
)

// Permission is a named capability of the PBX connector.
type Permission string

const (
	PermReceiveIncomingCalls Permission = "ReceiveIncomingCalls"
	PermMakeOutgoingCalls    Permission = "MakeOutgoingCalls"
	PermViewReports          Permission = "ViewReports"
)

var rolePermissions = map[string][]Permission{
	RoleAdmin:   {PermReceiveIncomingCalls, PermMakeOutgoingCalls, PermViewReports},
	RoleManager: {PermReceiveIncomingCalls, PermMakeOutgoingCalls, PermViewReports},
	RoleAgent:   {PermReceiveIncomingCalls, PermMakeOutgoingCalls},
	RoleViewer:  {PermViewReports},
}

func IsAdmin(role string) bool { return role == RoleAdmin }

// RoleAllows reports whether role grants p. Unknown roles grant nothing.
func RoleAllows(role string, p Permission) bool {
	if IsAdmin(role) {
		return true
	}
	for _, have := range rolePermissions[role] {
		if have == p {
			return true
		}
	}
	return false
}
