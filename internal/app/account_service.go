/**
 * @description
 * This file contains the account lifecycle service: opening accounts (with the
 * per-user cap and unique ACC-number allocation), listing and fetching them,
 * and the ACTIVE/FROZEN/CLOSED state machine. Freezes and unfreezes are
 * admin-only and audited; close requires an exactly zero balance and is
 * terminal.
 *
 * @dependencies
 * - math/rand/v2: Account number allocation.
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

const (
	// maxAccountsPerUser caps how many accounts one user may hold.
	maxAccountsPerUser = 20

	// maxNumberDraws bounds the unique account number allocation loop.
	maxNumberDraws = 5
)

// AccountService manages account creation and lifecycle transitions.
type AccountService struct {
	repo  store.Repository
	audit *AuditRecorder
}

// NewAccountService creates a new account service instance.
func NewAccountService(repo store.Repository, audit *AuditRecorder) *AccountService {
	return &AccountService{repo: repo, audit: audit}
}

// OpenAccount creates a new account with an optional opening deposit. A zero
// targetUserID means the acting user's own account; privileged roles may name
// another user, customers may not.
func (s *AccountService) OpenAccount(ctx context.Context, actor *domain.User, targetUserID int64, accountType domain.AccountType, openingBalance decimal.Decimal) (*domain.Account, error) {
	if !domain.HasPermission(actor.Role, domain.PermCreateAccounts) {
		return nil, ErrPermissionDenied
	}
	if targetUserID == 0 {
		targetUserID = actor.ID
	}
	if targetUserID != actor.ID && actor.Role == domain.RoleCustomer {
		return nil, ErrPermissionDenied
	}
	if openingBalance.IsNegative() || openingBalance.Exponent() < -2 {
		return nil, ErrInvalidAmount
	}

	if _, err := s.repo.GetUserByID(ctx, targetUserID); err != nil {
		return nil, err
	}

	count, err := s.repo.CountUserAccounts(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if count >= maxAccountsPerUser {
		return nil, ErrAccountLimit
	}

	number, err := s.allocateAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		AccountNumber:  number,
		UserID:         targetUserID,
		AccountType:    accountType,
		Balance:        openingBalance,
		Status:         domain.AccountStatusActive,
		OpeningBalance: openingBalance,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("opened %s account", accountType)
	if targetUserID != actor.ID {
		details = fmt.Sprintf("opened %s account for user %d", accountType, targetUserID)
	}
	s.audit.Record(ctx, &actor.ID, domain.AuditActionAdminAction,
		"account", account.AccountNumber, details)
	return account, nil
}

// allocateAccountNumber draws random ACC-XXXXXXXXXX numbers until one is
// unused, giving up after a bounded number of draws. The insert still races a
// concurrent allocation of the same number, but the unique constraint on
// account_number makes the collision a hard error rather than a duplicate.
func (s *AccountService) allocateAccountNumber(ctx context.Context) (string, error) {
	for i := 0; i < maxNumberDraws; i++ {
		number := fmt.Sprintf("ACC-%010d", rand.Int64N(10_000_000_000))
		exists, err := s.repo.AccountNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", ErrNumberExhausted
}

// GetAccount returns one account. Owners see their own; roles with the
// view-all permission see any.
func (s *AccountService) GetAccount(ctx context.Context, actor *domain.User, accountNumber string) (*domain.Account, error) {
	account, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID == actor.ID && domain.HasPermission(actor.Role, domain.PermViewOwnAccounts) {
		return account, nil
	}
	if domain.HasPermission(actor.Role, domain.PermViewAllUserAccounts) {
		return account, nil
	}
	return nil, ErrPermissionDenied
}

// ListOwnAccounts returns all accounts of the acting user.
func (s *AccountService) ListOwnAccounts(ctx context.Context, actor *domain.User) ([]domain.Account, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewOwnAccounts) {
		return nil, ErrPermissionDenied
	}
	return s.repo.ListUserAccounts(ctx, actor.ID)
}

// ListUserAccounts returns another user's accounts for privileged roles.
func (s *AccountService) ListUserAccounts(ctx context.Context, actor *domain.User, userID int64) ([]domain.Account, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewAllUserAccounts) {
		return nil, ErrPermissionDenied
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListUserAccounts(ctx, userID)
}

// FreezeAccount transitions an account to FROZEN. Admin only; audited.
func (s *AccountService) FreezeAccount(ctx context.Context, actor *domain.User, accountNumber, reason string) (*domain.Account, error) {
	if !domain.HasPermission(actor.Role, domain.PermFreezeUnfreezeAccounts) {
		return nil, ErrPermissionDenied
	}
	account, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	frozen, err := s.repo.FreezeAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &actor.ID, domain.AuditActionAccountFreeze,
		"account", frozen.AccountNumber, reason)
	return frozen, nil
}

// UnfreezeAccount transitions a FROZEN account back to ACTIVE. Admin only;
// audited.
func (s *AccountService) UnfreezeAccount(ctx context.Context, actor *domain.User, accountNumber, reason string) (*domain.Account, error) {
	if !domain.HasPermission(actor.Role, domain.PermFreezeUnfreezeAccounts) {
		return nil, ErrPermissionDenied
	}
	account, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	unfrozen, err := s.repo.UnfreezeAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &actor.ID, domain.AuditActionAccountUnfreeze,
		"account", unfrozen.AccountNumber, reason)
	return unfrozen, nil
}

// CloseAccount transitions an account to CLOSED. The owner may close their own
// account; admins may close any. The balance must be exactly zero.
func (s *AccountService) CloseAccount(ctx context.Context, actor *domain.User, accountNumber string) (*domain.Account, error) {
	account, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID != actor.ID && actor.Role != domain.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	closed, err := s.repo.CloseAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &actor.ID, domain.AuditActionAdminAction,
		"account", closed.AccountNumber, "account closed")
	return closed, nil
}
