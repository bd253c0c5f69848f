// Package authz holds the authorization gates of the accounting endpoints.
//
// A caller asking for data of a user or project they may not see gets
// ErrNotFound rather than ErrForbidden so the answer does not reveal
// whether the entity exists. ErrForbidden is reserved for admin-only
// operations where existence is not a secret.
package authz

import (
	"errors"

	"github.com/LRZ-BADW/avina/pkg/types"
)

var (
	// ErrNotFound hides entities the caller may not see
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden rejects callers lacking a privilege
	ErrForbidden = errors.New("forbidden")
)

// RequireAdmin allows staff users only
func RequireAdmin(caller *types.User) error {
	if caller != nil && caller.IsStaff {
		return nil
	}
	return ErrForbidden
}

// RequireMasterOrNotFound allows admins and the masters of projectID
func RequireMasterOrNotFound(caller *types.User, projectID uint32) error {
	if caller == nil {
		return ErrNotFound
	}
	if caller.IsStaff || caller.IsMasterOf(projectID) {
		return nil
	}
	return ErrNotFound
}

// RequireSelfOrMasterOrNotFound allows admins, the user itself and the
// masters of the user's project
func RequireSelfOrMasterOrNotFound(caller *types.User, userID, projectID uint32) error {
	if caller == nil {
		return ErrNotFound
	}
	if caller.ID == userID {
		return nil
	}
	return RequireMasterOrNotFound(caller, projectID)
}
