/**
 * @description
 * This file contains the admin service: role assignment, user activation and
 * the privileged user listing queries. Every mutation here is an
 * ADMIN_ACTION audit entry naming the affected user.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

// AdminService manages roles and user account state.
type AdminService struct {
	repo  store.Repository
	audit *AuditRecorder
}

// NewAdminService creates a new admin service instance.
func NewAdminService(repo store.Repository, audit *AuditRecorder) *AdminService {
	return &AdminService{repo: repo, audit: audit}
}

// AssignRole changes a user's role. Admins cannot demote themselves; losing
// the last admin through a self-demotion is an easy way to lock everyone out.
func (s *AdminService) AssignRole(ctx context.Context, actor *domain.User, userID int64, role domain.Role) (*domain.User, error) {
	if !domain.HasPermission(actor.Role, domain.PermAssignChangeUserRoles) {
		return nil, ErrPermissionDenied
	}
	if actor.ID == userID && role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot remove own admin role", ErrValidation)
	}

	target, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}
	if err := s.repo.UpdateUserRole(ctx, userID, role); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actor.ID, domain.AuditActionAdminAction,
		"user", strconv.FormatInt(userID, 10),
		fmt.Sprintf("role changed from %s to %s", target.Role, role))
	target.Role = role
	return target, nil
}

// SetUserActive activates or deactivates a user. Deactivated users cannot log
// in but their data and accounts remain intact.
func (s *AdminService) SetUserActive(ctx context.Context, actor *domain.User, userID int64, active bool) error {
	if !domain.HasPermission(actor.Role, domain.PermAssignChangeUserRoles) {
		return ErrPermissionDenied
	}
	if actor.ID == userID && !active {
		return fmt.Errorf("%w: cannot deactivate own user", ErrValidation)
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SetUserActive(ctx, userID, active); err != nil {
		return err
	}

	verb := "deactivated"
	if active {
		verb = "activated"
	}
	s.audit.Record(ctx, &actor.ID, domain.AuditActionAdminAction,
		"user", strconv.FormatInt(userID, 10), "user "+verb)
	return nil
}

// GetUser returns one user for privileged roles.
func (s *AdminService) GetUser(ctx context.Context, actor *domain.User, userID int64) (*domain.User, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewAllUserAccounts) {
		return nil, ErrPermissionDenied
	}
	return s.repo.GetUserByID(ctx, userID)
}

// ListUsersByRole returns users holding a role for privileged roles.
func (s *AdminService) ListUsersByRole(ctx context.Context, actor *domain.User, role domain.Role, limit, offset int) ([]domain.User, int64, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewAllUserAccounts) {
		return nil, 0, ErrPermissionDenied
	}
	return s.repo.ListUsersByRole(ctx, role, limit, offset)
}
