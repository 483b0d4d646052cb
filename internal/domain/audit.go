/**
 * @description
 * This file defines the append-only AuditLog model and the closed AuditAction
 * enum. Audit rows are written as side effects of business operations and are
 * never updated or deleted; a failed audit write never fails the operation it
 * documents.
 */

package domain

import (
	"errors"
	"strings"
	"time"
)

// AuditAction is a closed enum of security- and business-relevant event kinds.
type AuditAction string

const (
	AuditActionLogin              AuditAction = "login"
	AuditActionLoginFailed        AuditAction = "login_failed"
	AuditActionAccountFreeze      AuditAction = "account_freeze"
	AuditActionAccountUnfreeze    AuditAction = "account_unfreeze"
	AuditActionTransfer           AuditAction = "transfer"
	AuditActionAdminAction        AuditAction = "admin_action"
	AuditActionSuspiciousActivity AuditAction = "suspicious_activity"
)

// ErrInvalidAuditAction is returned for unrecognized audit action strings.
var ErrInvalidAuditAction = errors.New("invalid audit action")

// ParseAuditAction validates a caller-supplied action string.
func ParseAuditAction(s string) (AuditAction, error) {
	switch AuditAction(strings.ToLower(strings.TrimSpace(s))) {
	case AuditActionLogin:
		return AuditActionLogin, nil
	case AuditActionLoginFailed:
		return AuditActionLoginFailed, nil
	case AuditActionAccountFreeze:
		return AuditActionAccountFreeze, nil
	case AuditActionAccountUnfreeze:
		return AuditActionAccountUnfreeze, nil
	case AuditActionTransfer:
		return AuditActionTransfer, nil
	case AuditActionAdminAction:
		return AuditActionAdminAction, nil
	case AuditActionSuspiciousActivity:
		return AuditActionSuspiciousActivity, nil
	default:
		return "", ErrInvalidAuditAction
	}
}

// AuditLog is one append-only audit row.
type AuditLog struct {
	ID           int64       `json:"log_id"`
	UserID       *int64      `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type,omitempty"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"`
	IPAddress    string      `json:"ip_address,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// AuditFilter controls the audit listing query.
type AuditFilter struct {
	Action    *AuditAction
	UserID    *int64
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}
