package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/permission"
)

// Roles is the decoded roles file. It maps roles to permission grants and
// actor identities to roles. Grants omitted from the file fall back to the
// built-in defaults, so a minimal deployment only lists its actors.
type Roles struct {
	Grants   map[string][]string `toml:"grants"`
	Statuses map[string][]string `toml:"statuses"`
	Actors   map[string][]string `toml:"actors"`
}

// LoadRoles reads and validates a roles file.
func LoadRoles(path string) (*Roles, error) {
	var r Roles
	if _, err := toml.DecodeFile(path, &r); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("roles file %s: %w", path, err)
		}
		return nil, fmt.Errorf("parse roles file %s: %w", path, err)
	}
	for role, statuses := range r.Statuses {
		for _, st := range statuses {
			if !model.Status(st).IsValid() {
				return nil, fmt.Errorf("roles file %s: role %q grants unknown status %q", path, role, st)
			}
		}
	}
	if r.Actors == nil {
		r.Actors = map[string][]string{}
	}
	return &r, nil
}

// Gate builds the permission gate from the file's grant tables. Roles
// absent from the [grants] section keep their built-in defaults.
func (r *Roles) Gate() *permission.Gate {
	grants := permission.DefaultGrants()
	for role, perms := range r.Grants {
		ps := make([]permission.Permission, 0, len(perms))
		for _, p := range perms {
			ps = append(ps, permission.Permission(p))
		}
		grants[permission.Role(role)] = ps
	}

	var statusGrants map[permission.Role][]model.Status
	if len(r.Statuses) > 0 {
		statusGrants = make(map[permission.Role][]model.Status, len(r.Statuses))
		for role, statuses := range r.Statuses {
			ss := make([]model.Status, 0, len(statuses))
			for _, st := range statuses {
				ss = append(ss, model.Status(st))
			}
			statusGrants[permission.Role(role)] = ss
		}
	}

	return permission.New(grants, statusGrants)
}

// Resolve maps an actor identity to its roles. Unknown actors have none.
func (r *Roles) Resolve(actor string) []permission.Role {
	names := r.Actors[actor]
	if len(names) == 0 {
		return nil
	}
	roles := make([]permission.Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, permission.Role(n))
	}
	return roles
}
