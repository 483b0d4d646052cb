/**
 * @description
 * This file contains the audit query service. The audit trail itself is
 * written by the AuditRecorder as a side effect of other operations; this
 * service only exposes the read surface to auditors and admins.
 */

package app

import (
	"context"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

// AuditService exposes the audit log read queries.
type AuditService struct {
	repo store.Repository
}

// NewAuditService creates a new audit query service instance.
func NewAuditService(repo store.Repository) *AuditService {
	return &AuditService{repo: repo}
}

// ListAuditLogs returns audit rows matching the filter for privileged roles.
func (s *AuditService) ListAuditLogs(ctx context.Context, actor *domain.User, filter domain.AuditFilter) ([]domain.AuditLog, int64, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewAuditSecurityLogs) {
		return nil, 0, ErrPermissionDenied
	}
	return s.repo.ListAuditLogs(ctx, filter)
}

// ListUserAuditLogs returns one user's audit rows for privileged roles.
func (s *AuditService) ListUserAuditLogs(ctx context.Context, actor *domain.User, userID int64, limit, offset int) ([]domain.AuditLog, int64, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewAuditSecurityLogs) {
		return nil, 0, ErrPermissionDenied
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListUserAuditLogs(ctx, userID, limit, offset)
}
