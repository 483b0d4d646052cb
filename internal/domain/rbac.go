/**
 * @description
 * This file defines the role -> permission matrix consulted by every component
 * that needs to authorize an action beyond ownership checks. The matrix is an
 * immutable static mapping built once at package init and queried read-only;
 * role alone determines the permission set.
 */

package domain

// Permission is a named boolean capability checked against the matrix.
type Permission string

const (
	PermRegisterLogin         Permission = "register_login"
	PermManageOwnProfile      Permission = "manage_own_profile"
	PermViewOwnAccounts       Permission = "view_own_accounts"
	PermViewAllUserAccounts   Permission = "view_all_user_accounts"
	PermCreateAccounts        Permission = "create_accounts"
	PermInternalTransfers     Permission = "internal_transfers"
	PermExternalTransfers     Permission = "external_transfers"
	PermViewOwnTransactions   Permission = "view_own_transactions"
	PermViewAllTransactions   Permission = "view_all_transactions"
	PermFreezeUnfreezeAccounts Permission = "freeze_unfreeze_accounts"
	PermAssignChangeUserRoles Permission = "assign_change_user_roles"
	PermViewAuditSecurityLogs Permission = "view_audit_security_logs"
	PermManageSupportTickets  Permission = "manage_support_tickets"
	PermViewOpenTickets       Permission = "view_open_tickets"
	PermUpdateTicketStatus    Permission = "update_ticket_status"
	PermAddTicketNotes        Permission = "add_ticket_notes"
)

// rolePermissions is the single source of truth for what each role may do.
// Constructed once; never mutated after init.
var rolePermissions = map[Role]map[Permission]bool{
	RoleCustomer: {
		PermRegisterLogin:          true,
		PermManageOwnProfile:       true,
		PermViewOwnAccounts:        true,
		PermViewAllUserAccounts:    false,
		PermCreateAccounts:         true,
		PermInternalTransfers:      true,
		PermExternalTransfers:      true,
		PermViewOwnTransactions:    true,
		PermViewAllTransactions:    false,
		PermFreezeUnfreezeAccounts: false,
		PermAssignChangeUserRoles:  false,
		PermViewAuditSecurityLogs:  false,
		PermManageSupportTickets:   true,
		PermViewOpenTickets:        false,
		PermUpdateTicketStatus:     false,
		PermAddTicketNotes:         true,
	},
	RoleSupportAgent: {
		PermRegisterLogin:          true,
		PermManageOwnProfile:       true,
		PermViewOwnAccounts:        true,
		PermViewAllUserAccounts:    true,
		PermCreateAccounts:         false,
		PermInternalTransfers:      false,
		PermExternalTransfers:      false,
		PermViewOwnTransactions:    true,
		PermViewAllTransactions:    true,
		PermFreezeUnfreezeAccounts: false,
		PermAssignChangeUserRoles:  false,
		PermViewAuditSecurityLogs:  false,
		PermManageSupportTickets:   true,
		PermViewOpenTickets:        true,
		PermUpdateTicketStatus:     true,
		PermAddTicketNotes:         true,
	},
	RoleAuditor: {
		PermRegisterLogin:          true,
		PermManageOwnProfile:       false,
		PermViewOwnAccounts:        true,
		PermViewAllUserAccounts:    true,
		PermCreateAccounts:         false,
		PermInternalTransfers:      false,
		PermExternalTransfers:      false,
		PermViewOwnTransactions:    true,
		PermViewAllTransactions:    true,
		PermFreezeUnfreezeAccounts: false,
		PermAssignChangeUserRoles:  false,
		PermViewAuditSecurityLogs:  true,
		PermManageSupportTickets:   false,
		PermViewOpenTickets:        false,
		PermUpdateTicketStatus:     false,
		PermAddTicketNotes:         false,
	},
	RoleAdmin: {
		PermRegisterLogin:          true,
		PermManageOwnProfile:       true,
		PermViewOwnAccounts:        true,
		PermViewAllUserAccounts:    true,
		PermCreateAccounts:         true,
		PermInternalTransfers:      true,
		PermExternalTransfers:      true,
		PermViewOwnTransactions:    true,
		PermViewAllTransactions:    true,
		PermFreezeUnfreezeAccounts: true,
		PermAssignChangeUserRoles:  true,
		PermViewAuditSecurityLogs:  true,
		PermManageSupportTickets:   true,
		PermViewOpenTickets:        true,
		PermUpdateTicketStatus:     true,
		PermAddTicketNotes:         true,
	},
}

// HasPermission reports whether a role grants the named permission. Unknown
// roles and unknown permissions are both denied.
func HasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[perm]
}

// PermissionsFor returns a copy of the permission set for a role, so callers
// can never mutate the matrix through the returned map.
func PermissionsFor(role Role) map[Permission]bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return map[Permission]bool{}
	}
	out := make(map[Permission]bool, len(perms))
	for p, allowed := range perms {
		out[p] = allowed
	}
	return out
}
