package authz

import (
	"bayanika.app/backend/internal/entity"
	"bayanika.app/backend/pkg/apperror"
)

// Operation names a privileged action a caller may attempt.
type Operation string

const (
	CreateActivity    Operation = "activity:create"
	UpdateActivity    Operation = "activity:update"
	DeleteActivity    Operation = "activity:delete"
	MarkAttendance    Operation = "activity:mark_attendance"
	ApproveProof      Operation = "proof:approve"
	RejectProof       Operation = "proof:reject"
	ListPendingProofs Operation = "proof:list_pending"
	ManageRewards     Operation = "reward:manage"
	ManageUsers       Operation = "user:manage"
)

// permissions maps each operation to the roles allowed to perform it.
// Centralizing the table keeps the per-handler role checks out of the
// services.
var permissions = map[Operation][]string{
	CreateActivity:    {entity.RoleBarangay, entity.RoleAdmin},
	UpdateActivity:    {entity.RoleBarangay, entity.RoleAdmin},
	DeleteActivity:    {entity.RoleAdmin},
	MarkAttendance:    {entity.RoleBarangay, entity.RoleAdmin},
	ApproveProof:      {entity.RoleAdmin},
	RejectProof:       {entity.RoleAdmin},
	ListPendingProofs: {entity.RoleAdmin},
	ManageRewards:     {entity.RoleAdmin},
	ManageUsers:       {entity.RoleAdmin},
}

// Can reports whether the role may perform the operation.
func Can(role string, op Operation) bool {
	for _, allowed := range permissions[op] {
		if role == allowed {
			return true
		}
	}
	return false
}

// Require returns nil when the role may perform the operation, and the
// matching access error otherwise.
func Require(role string, op Operation) error {
	if role == "" {
		return apperror.ErrUnauthorized
	}
	if !Can(role, op) {
		return apperror.ErrForbidden
	}
	return nil
}
