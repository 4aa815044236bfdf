// Package access holds the single allow/deny predicate used by every
// mutating and reading path.
package access

import (
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/model"
)

// Op is the operation class being checked.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpDelete
)

// Allow reports whether actor may perform op on a resource owned by ownerID.
// Admins may do anything; owners may do anything to their own resources;
// anyone may read a public resource.
func Allow(actor *model.Identity, ownerID uuid.UUID, public bool, op Op) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.ID == ownerID {
		return true
	}
	return op == OpRead && public
}

// AllowRes is Allow over anything implementing model.Owned.
func AllowRes(actor *model.Identity, res model.Owned, op Op) bool {
	return Allow(actor, res.Owner(), res.Shared(), op)
}
