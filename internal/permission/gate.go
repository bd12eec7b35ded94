// Package permission implements role-based gating of pipeline operations.
//
// A Gate is an immutable Role → Permission mapping constructed once at
// startup and consulted synchronously before any mutation. Every check
// fails closed: an unknown role has no permissions, and an unknown
// permission is never granted.
package permission

import "github.com/alfredjeanlab/pipeline/internal/model"

// Role identifies a class of users. Roles are opaque to the gate; only the
// grant table gives them meaning.
type Role string

// Built-in roles matching the default grant table.
const (
	RoleAdmin     Role = "admin"
	RoleFranchise Role = "franchise"
	RoleReferrer  Role = "referrer"
	RoleUser      Role = "user"
)

// Permission is an enumerated capability.
type Permission string

const (
	PermViewClients     Permission = "view_clients"
	PermEditClients     Permission = "edit_clients"
	PermMoveClients     Permission = "move_clients"
	PermBulkMoveClients Permission = "bulk_move_clients"
	PermDeleteClients   Permission = "delete_clients"
	PermViewAllStatuses Permission = "view_all_statuses"
	PermExportData      Permission = "export_data"
	PermManageUsers     Permission = "manage_users"
)

// Gate answers permission checks against a fixed grant table.
// It is safe for concurrent use: the table is never mutated after New.
type Gate struct {
	grants map[Role]map[Permission]struct{}

	// statusGrants restricts which pipeline stages a role may view when it
	// lacks view_all_statuses. Empty set = no per-status visibility.
	statusGrants map[Role]map[model.Status]struct{}
}

// New builds a gate from an explicit grant table. The input maps are copied;
// later mutation of the arguments does not affect the gate.
func New(grants map[Role][]Permission, statusGrants map[Role][]model.Status) *Gate {
	g := &Gate{
		grants:       make(map[Role]map[Permission]struct{}, len(grants)),
		statusGrants: make(map[Role]map[model.Status]struct{}, len(statusGrants)),
	}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		g.grants[role] = set
	}
	for role, statuses := range statusGrants {
		set := make(map[model.Status]struct{}, len(statuses))
		for _, s := range statuses {
			set[s] = struct{}{}
		}
		g.statusGrants[role] = set
	}
	return g
}

// CanPerform reports whether the role holds the permission. Unknown roles
// and unknown permissions are denied.
func (g *Gate) CanPerform(role Role, perm Permission) bool {
	set, ok := g.grants[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// CanPerformAny reports whether any of the roles holds the permission.
// Multi-role identities take the union of their grants.
func (g *Gate) CanPerformAny(roles []Role, perm Permission) bool {
	for _, r := range roles {
		if g.CanPerform(r, perm) {
			return true
		}
	}
	return false
}

// CanViewStatus reports whether the role may view the given pipeline stage.
// view_all_statuses grants every stage; otherwise the role's per-status
// grants apply.
func (g *Gate) CanViewStatus(role Role, status model.Status) bool {
	if g.CanPerform(role, PermViewAllStatuses) {
		return true
	}
	set, ok := g.statusGrants[role]
	if !ok {
		return false
	}
	_, ok = set[status]
	return ok
}

// Permissions returns the role's grants in no particular order.
// The returned slice is a copy.
func (g *Gate) Permissions(role Role) []Permission {
	set, ok := g.grants[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}

// DefaultGrants returns the built-in grant table. Deployments override it
// with a roles file; the defaults keep a fresh install usable.
func DefaultGrants() map[Role][]Permission {
	return map[Role][]Permission{
		RoleAdmin: {
			PermViewClients, PermEditClients, PermMoveClients,
			PermBulkMoveClients, PermDeleteClients, PermViewAllStatuses,
			PermExportData, PermManageUsers,
		},
		RoleFranchise: {
			PermViewClients, PermEditClients, PermMoveClients,
			PermBulkMoveClients, PermViewAllStatuses,
		},
		RoleReferrer: {
			PermViewClients, PermEditClients, PermMoveClients,
		},
		RoleUser: {
			PermViewClients,
		},
	}
}
