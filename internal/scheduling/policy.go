package scheduling

import (
	"fmt"

	"healthcare-admin-server/internal/models"
)

// Identity is the already-authenticated caller of a core operation.
type Identity struct {
	SubjectID string
	Role      models.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Operation names a core operation for authorization.
type Operation string

const (
	OpBook         Operation = "book"
	OpListMine     Operation = "list_mine"
	OpCancel       Operation = "cancel"
	OpGet          Operation = "get"
	OpList         Operation = "list"
	OpApprove      Operation = "approve"
	OpReject       Operation = "reject"
	OpUpdateStatus Operation = "update_status"
)

func (op Operation) adminOnly() bool {
	switch op {
	case OpGet, OpList, OpApprove, OpReject, OpUpdateStatus:
		return true
	}
	return false
}

// authorizeRole checks only the role requirement of op. It runs before any
// store access so that callers without the role learn nothing about records.
func authorizeRole(op Operation, caller Identity) error {
	if caller.SubjectID == "" {
		return fmt.Errorf("%w: missing caller identity", ErrForbidden)
	}
	if op.adminOnly() {
		if !caller.IsAdmin() {
			return fmt.Errorf("%w: %s requires the admin role", ErrForbidden, op)
		}
		return nil
	}
	if caller.Role != models.RoleUser {
		return fmt.Errorf("%w: %s is only available to users", ErrForbidden, op)
	}
	return nil
}

// Authorize evaluates the policy for op against the caller and the owner of
// the affected resource (empty when op does not target one). A user acting on
// an appointment they do not own gets ErrNotFound rather than ErrForbidden.
func Authorize(op Operation, caller Identity, resourceOwner string) error {
	if err := authorizeRole(op, caller); err != nil {
		return err
	}
	if op == OpCancel && resourceOwner != caller.SubjectID {
		return fmt.Errorf("%w: appointment not found", ErrNotFound)
	}
	return nil
}
