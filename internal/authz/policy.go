// Package authz holds the role-based authorization policy. Every rule is a
// pure function of the actor's role and id plus the target's ownership; nil
// means allowed, otherwise a FORBIDDEN domain error is returned. Callers are
// expected to resolve the target first so that a missing target surfaces as
// NOT_FOUND rather than a denial.
package authz

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Actor is the authenticated caller as seen by the policy.
type Actor struct {
	ID   int64
	Role domain.Role
}

// CanCreateTicket allows every authenticated role.
func CanCreateTicket(actor Actor) error {
	return nil
}

// CanListAllTickets restricts the global listing, stats and SLA views to
// operators.
func CanListAllTickets(actor Actor) error {
	if !actor.Role.IsOperator() {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// CanViewTicket allows operators unconditionally; employees only see tickets
// they created. A ticket whose creator was deleted is not visible to any
// employee.
func CanViewTicket(actor Actor, creatorID *int64) error {
	if actor.Role.IsOperator() {
		return nil
	}
	if creatorID != nil && *creatorID == actor.ID {
		return nil
	}
	return apperrors.NewForbidden("you do not have access to this ticket")
}

// CanCommentOnTicket mirrors the visibility rule: employees may only comment
// on their own tickets.
func CanCommentOnTicket(actor Actor, creatorID *int64) error {
	return CanViewTicket(actor, creatorID)
}

// CanUpdateTicketStatus restricts status changes to operators.
func CanUpdateTicketStatus(actor Actor) error {
	if !actor.Role.IsOperator() {
		return apperrors.NewForbidden("only IT staff and managers can update ticket status")
	}
	return nil
}

// CanUpdateTicketPriority restricts priority changes to operators.
func CanUpdateTicketPriority(actor Actor) error {
	if !actor.Role.IsOperator() {
		return apperrors.NewForbidden("only IT staff and managers can update ticket priority")
	}
	return nil
}

// CanAssignTicket restricts assignment to operators.
func CanAssignTicket(actor Actor) error {
	if !actor.Role.IsOperator() {
		return apperrors.NewForbidden("only IT staff and managers can assign tickets")
	}
	return nil
}

// CanDeleteTicket restricts deletion to managers.
func CanDeleteTicket(actor Actor) error {
	if actor.Role != domain.RoleManager {
		return apperrors.NewForbidden("only managers can delete tickets")
	}
	return nil
}

// CanManageUsers gates the user listing and lookup endpoints.
func CanManageUsers(actor Actor) error {
	if !actor.Role.IsOperator() {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// CanCreateUser allows managers and IT staff to provision accounts.
func CanCreateUser(actor Actor) error {
	return CanManageUsers(actor)
}

// EffectiveRoleForCreate forces IT-staff-provisioned accounts to the employee
// role regardless of what was requested. An empty request defaults to
// employee.
func EffectiveRoleForCreate(actor Actor, requested domain.Role) domain.Role {
	if requested == "" {
		requested = domain.RoleEmployee
	}
	if actor.Role == domain.RoleITStaff {
		return domain.RoleEmployee
	}
	return requested
}

// CanUpdateUserRole allows managers only, and never on their own account.
func CanUpdateUserRole(actor Actor, targetID int64) error {
	if actor.Role != domain.RoleManager {
		return apperrors.NewForbidden("only managers can change user roles")
	}
	if targetID == actor.ID {
		return apperrors.NewForbidden("you cannot change your own role")
	}
	return nil
}

// CanUpdateUserStatus allows managers on anyone but themselves; IT staff on
// any non-manager target except themselves.
func CanUpdateUserStatus(actor Actor, targetID int64, targetRole domain.Role) error {
	if targetID == actor.ID {
		return apperrors.NewForbidden("you cannot deactivate your own account")
	}
	switch actor.Role {
	case domain.RoleManager:
		return nil
	case domain.RoleITStaff:
		if targetRole == domain.RoleManager {
			return apperrors.NewForbidden("IT staff cannot deactivate manager accounts")
		}
		return nil
	}
	return apperrors.NewForbidden("insufficient role")
}

// CanUpdateUserDepartment allows managers on anyone; IT staff on any
// non-manager target.
func CanUpdateUserDepartment(actor Actor, targetRole domain.Role) error {
	switch actor.Role {
	case domain.RoleManager:
		return nil
	case domain.RoleITStaff:
		if targetRole == domain.RoleManager {
			return apperrors.NewForbidden("IT staff cannot edit manager details")
		}
		return nil
	}
	return apperrors.NewForbidden("insufficient role")
}

// CanDeleteUser allows managers only, never on their own account.
func CanDeleteUser(actor Actor, targetID int64) error {
	if actor.Role != domain.RoleManager {
		return apperrors.NewForbidden("only managers can delete users")
	}
	if targetID == actor.ID {
		return apperrors.NewForbidden("you cannot delete your own account")
	}
	return nil
}

// CanResendVerification allows managers on anyone; IT staff on non-manager
// targets.
func CanResendVerification(actor Actor, targetRole domain.Role) error {
	switch actor.Role {
	case domain.RoleManager:
		return nil
	case domain.RoleITStaff:
		if targetRole == domain.RoleManager {
			return apperrors.NewForbidden("IT staff cannot act on manager accounts")
		}
		return nil
	}
	return apperrors.NewForbidden("insufficient role")
}

// CanViewUserStats restricts the account dashboard to managers.
func CanViewUserStats(actor Actor) error {
	if actor.Role != domain.RoleManager {
		return apperrors.NewForbidden("only managers can view user statistics")
	}
	return nil
}
