/**
 * @description
 * This file implements the AuditRecorder: the single writer of audit rows for
 * every service. Recording is best-effort by contract. An operation that
 * succeeded must never be failed retroactively because its audit write did
 * not; failures are logged and swallowed. Security-relevant entries are also
 * published to the bank.events exchange for downstream consumers.
 *
 * @dependencies
 * - internal/domain, internal/store: Audit model and persistence.
 * - pkg/rabbitmq: Event publishing.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
	"github.com/meridianbank/backoffice-service/pkg/rabbitmq"
)

// AuditRecorder appends audit rows and mirrors security events to the broker.
type AuditRecorder struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
}

// NewAuditRecorder creates a new AuditRecorder.
func NewAuditRecorder(repo store.Repository, producer rabbitmq.Publisher) *AuditRecorder {
	return &AuditRecorder{repo: repo, eventProducer: producer}
}

// Record appends one audit row. The caller's IP is taken from the context when
// the HTTP layer attached one. Errors are logged, never returned.
func (a *AuditRecorder) Record(ctx context.Context, userID *int64, action domain.AuditAction, resourceType, resourceID, details string) {
	entry := &domain.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    ClientIPFrom(ctx),
	}
	if err := a.repo.InsertAuditLog(ctx, entry); err != nil {
		log.Printf("level=error component=audit_recorder msg=\"audit write failed\" action=%s err=%v", action, err)
	}

	if action == domain.AuditActionSuspiciousActivity || action == domain.AuditActionLoginFailed {
		event := rabbitmq.SecurityEvent{
			UserID:    userID,
			Kind:      string(action),
			Details:   details,
			IPAddress: entry.IPAddress,
			Timestamp: time.Now().UTC(),
		}
		if err := a.eventProducer.PublishSecurityEvent(ctx, event); err != nil {
			log.Printf("level=warn component=audit_recorder msg=\"security event publish failed\" kind=%s err=%v", action, err)
		}
	}
}

// RecordTransfer appends the transfer audit row and publishes the completed
// transfer to the broker. Called only after the transfer has committed.
func (a *AuditRecorder) RecordTransfer(ctx context.Context, userID int64, result *domain.TransferResult) {
	details := "transfer " + result.SenderAccount + " -> " + result.ReceiverAccount + " amount " + result.Amount.StringFixed(2)
	a.Record(ctx, &userID, domain.AuditActionTransfer, "transaction", result.TransactionID, details)

	event := rabbitmq.TransferEvent{
		TransactionID:   result.TransactionID,
		SenderAccount:   result.SenderAccount,
		ReceiverAccount: result.ReceiverAccount,
		Amount:          result.Amount.StringFixed(2),
		Timestamp:       result.CreatedAt,
	}
	if err := a.eventProducer.PublishTransferEvent(ctx, event); err != nil {
		log.Printf("level=warn component=audit_recorder msg=\"transfer event publish failed\" transaction_id=%s err=%v", result.TransactionID, err)
	}
}
