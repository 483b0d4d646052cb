/**
 * @description
 * This file contains the transfer engine: the only entry points for moving
 * money between accounts. Internal transfers move money between two accounts
 * of the acting user; external transfers send to another user's account. Both
 * validate in a fixed fail-fast order, delegate the atomic debit/credit to the
 * store, and record the audit trail after commit. Ownership violations,
 * unknown receivers and insufficient balances additionally produce
 * SUSPICIOUS_ACTIVITY audit rows.
 *
 * @dependencies
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

// TransferRequest carries the caller-supplied fields of one transfer.
type TransferRequest struct {
	SenderAccountNumber   string
	ReceiverAccountNumber string
	Amount                decimal.Decimal
	Description           string
}

// TransferService orchestrates transfers and the transaction history queries.
type TransferService struct {
	repo  store.Repository
	audit *AuditRecorder
}

// NewTransferService creates a new transfer service instance.
func NewTransferService(repo store.Repository, audit *AuditRecorder) *TransferService {
	return &TransferService{repo: repo, audit: audit}
}

// validAmount accepts positive amounts with at most two decimal places.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Exponent() >= -2
}

// InternalTransfer moves money between two accounts of the acting user. Both
// accounts must exist before ownership is judged; an ownership mismatch on
// either side is recorded as suspicious activity.
func (s *TransferService) InternalTransfer(ctx context.Context, actor *domain.User, req TransferRequest) (*domain.TransferResult, error) {
	if !domain.HasPermission(actor.Role, domain.PermInternalTransfers) {
		return nil, ErrPermissionDenied
	}
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}

	sender, err := s.repo.GetAccountByNumber(ctx, req.SenderAccountNumber)
	if err != nil {
		return nil, err
	}
	receiver, err := s.repo.GetAccountByNumber(ctx, req.ReceiverAccountNumber)
	if err != nil {
		return nil, err
	}

	if sender.UserID != actor.ID || receiver.UserID != actor.ID {
		s.audit.Record(ctx, &actor.ID, domain.AuditActionSuspiciousActivity,
			"account", sender.AccountNumber,
			"internal transfer attempt with invalid account ownership")
		return nil, ErrNotAccountOwner
	}

	return s.execute(ctx, actor, sender, receiver, req)
}

// ExternalTransfer sends money to another user's account. The validation
// order is load-bearing: each check assumes the previous ones passed, and the
// audit contract depends on which check rejects.
func (s *TransferService) ExternalTransfer(ctx context.Context, actor *domain.User, req TransferRequest) (*domain.TransferResult, error) {
	if !domain.HasPermission(actor.Role, domain.PermExternalTransfers) {
		return nil, ErrPermissionDenied
	}
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}

	sender, err := s.repo.GetAccountByNumber(ctx, req.SenderAccountNumber)
	if err != nil {
		return nil, err
	}

	if sender.UserID != actor.ID {
		s.audit.Record(ctx, &actor.ID, domain.AuditActionSuspiciousActivity,
			"account", sender.AccountNumber,
			fmt.Sprintf("transfer attempt from account owned by user %d", sender.UserID))
		return nil, ErrNotAccountOwner
	}

	receiver, err := s.repo.GetAccountByNumber(ctx, req.ReceiverAccountNumber)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			s.audit.Record(ctx, &actor.ID, domain.AuditActionSuspiciousActivity,
				"account", req.ReceiverAccountNumber,
				"transfer attempt to nonexistent account")
		}
		return nil, err
	}

	return s.execute(ctx, actor, sender, receiver, req)
}

// execute runs the checks shared by both transfer kinds on the resolved
// accounts and hands the pair to the store.
func (s *TransferService) execute(ctx context.Context, actor *domain.User, sender, receiver *domain.Account, req TransferRequest) (*domain.TransferResult, error) {
	if sender.ID == receiver.ID {
		return nil, ErrSameAccount
	}
	if sender.Status != domain.AccountStatusActive {
		return nil, store.ErrSenderAccountInactive
	}
	if receiver.Status != domain.AccountStatusActive {
		return nil, store.ErrReceiverAccountInactive
	}
	if sender.Balance.LessThan(req.Amount) {
		s.audit.Record(ctx, &actor.ID, domain.AuditActionSuspiciousActivity,
			"account", sender.AccountNumber,
			fmt.Sprintf("transfer of %s exceeds balance %s", req.Amount.StringFixed(2), sender.Balance.StringFixed(2)))
		return nil, store.ErrInsufficientFunds
	}

	result, err := s.repo.PerformTransfer(ctx, store.TransferParams{
		ActingUserID:      actor.ID,
		SenderAccountID:   sender.ID,
		ReceiverAccountID: receiver.ID,
		Amount:            req.Amount,
		Description:       req.Description,
	})
	if err != nil {
		// The store re-checks status and balance under lock; a stale read above
		// can surface these again here, including the audit obligation.
		if errors.Is(err, store.ErrInsufficientFunds) {
			s.audit.Record(ctx, &actor.ID, domain.AuditActionSuspiciousActivity,
				"account", sender.AccountNumber,
				fmt.Sprintf("transfer of %s exceeds balance at commit time", req.Amount.StringFixed(2)))
		}
		return nil, err
	}

	s.audit.RecordTransfer(ctx, actor.ID, result)
	return result, nil
}

// GetTransaction returns one transfer by its transaction id. Callers without
// the view-all permission must be party to the transfer.
func (s *TransferService) GetTransaction(ctx context.Context, actor *domain.User, transactionID string) (*domain.TransactionView, error) {
	view, err := s.repo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if domain.HasPermission(actor.Role, domain.PermViewAllTransactions) {
		return view, nil
	}
	owns, err := s.ownsEitherAccount(ctx, actor.ID, view.SenderAccount, view.ReceiverAccount)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ErrPermissionDenied
	}
	return view, nil
}

// ListAccountTransactions returns one account's history. Owners see their own
// accounts; roles with the view-all permission see any account.
func (s *TransferService) ListAccountTransactions(ctx context.Context, actor *domain.User, accountNumber string, limit, offset int) ([]domain.TransactionView, int64, error) {
	account, err := s.authorizeHistoryAccess(ctx, actor, accountNumber)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListAccountTransactions(ctx, account.ID, limit, offset)
}

// FilterAccountTransactions is the privileged filtered-history query.
func (s *TransferService) FilterAccountTransactions(ctx context.Context, actor *domain.User, accountNumber string, filter domain.TransactionFilter) ([]domain.TransactionView, int64, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewAllTransactions) {
		return nil, 0, ErrPermissionDenied
	}
	account, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, 0, err
	}
	if filter.MinAmount != nil && !validAmount(*filter.MinAmount) {
		return nil, 0, ErrInvalidAmount
	}
	if filter.MaxAmount != nil && !validAmount(*filter.MaxAmount) {
		return nil, 0, ErrInvalidAmount
	}
	return s.repo.FilterAccountTransactions(ctx, account.ID, filter)
}

// ListAllTransactions returns the system-wide ledger for privileged roles.
func (s *TransferService) ListAllTransactions(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.TransactionView, int64, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewAllTransactions) {
		return nil, 0, ErrPermissionDenied
	}
	return s.repo.ListAllTransactions(ctx, limit, offset)
}

func (s *TransferService) authorizeHistoryAccess(ctx context.Context, actor *domain.User, accountNumber string) (*domain.Account, error) {
	account, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID == actor.ID && domain.HasPermission(actor.Role, domain.PermViewOwnTransactions) {
		return account, nil
	}
	if domain.HasPermission(actor.Role, domain.PermViewAllTransactions) {
		return account, nil
	}
	return nil, ErrPermissionDenied
}

func (s *TransferService) ownsEitherAccount(ctx context.Context, userID int64, accountNumbers ...string) (bool, error) {
	for _, number := range accountNumbers {
		account, err := s.repo.GetAccountByNumber(ctx, number)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				continue
			}
			return false, err
		}
		if account.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}
