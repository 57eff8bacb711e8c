// Package policy centralizes every authorization decision as one rule
// table keyed by (role, resource, action). Handlers ask for a scope and
// translate it into a query restriction; no handler carries its own
// "if superuser" branch.
package policy

import (
	"github.com/quietude83/quietude/internal/models"
)

type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleSuperuser
)

type Resource string

const (
	// ResourceProfile is the caller's own account: /user/me and the
	// password change. It never takes an id — it always resolves to
	// the caller, so its widest scope is Own.
	ResourceProfile Resource = "profile"

	// ResourceDirectory is the account collection: listing all users
	// and deleting one by id.
	ResourceDirectory Resource = "directory"

	ResourceAvailability Resource = "availability"
	ResourceRendezVous   Resource = "rendezvous"
	ResourceMessage      Resource = "message"
)

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Scope is how much of a resource collection an allowed caller may
// touch.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAll
)

var rules = map[Resource]map[Action]map[Role]Scope{
	ResourceProfile: {
		ActionRead:  {RoleUser: ScopeOwn, RoleSuperuser: ScopeOwn},
		ActionWrite: {RoleUser: ScopeOwn, RoleSuperuser: ScopeOwn},
	},
	ResourceDirectory: {
		ActionRead:  {RoleSuperuser: ScopeAll},
		ActionWrite: {RoleSuperuser: ScopeAll},
	},
	ResourceAvailability: {
		ActionRead:  {RoleUser: ScopeAll, RoleSuperuser: ScopeAll},
		ActionWrite: {RoleSuperuser: ScopeAll},
	},
	ResourceRendezVous: {
		ActionRead:  {RoleUser: ScopeOwn, RoleSuperuser: ScopeAll},
		ActionWrite: {RoleUser: ScopeOwn, RoleSuperuser: ScopeAll},
	},
	ResourceMessage: {
		ActionRead:  {RoleUser: ScopeOwn, RoleSuperuser: ScopeAll},
		ActionWrite: {RoleUser: ScopeOwn, RoleSuperuser: ScopeAll},
	},
}

// RoleOf classifies a caller. A nil or inactive user is anonymous:
// a deactivated account keeps its token until logout but loses all
// access.
func RoleOf(u *models.User) Role {
	switch {
	case u == nil || !u.IsActive:
		return RoleAnonymous
	case u.IsSuperuser:
		return RoleSuperuser
	default:
		return RoleUser
	}
}

// Allow returns the scope the caller gets for an action on a resource.
// Anything not in the table is ScopeNone.
func Allow(u *models.User, res Resource, act Action) Scope {
	return rules[res][act][RoleOf(u)]
}
