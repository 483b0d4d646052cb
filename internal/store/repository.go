/**
 * @description
 * This file defines the `Repository` interface: the contract for all data
 * access required by the back-office services. The interface decouples the
 * business logic from PostgreSQL and is what the service tests stub out.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrUserExists              = errors.New("username or email already exists")
	ErrAccountNotFound         = errors.New("account not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrInsufficientFunds       = errors.New("insufficient balance")
	ErrSenderAccountInactive   = errors.New("sender account is not active")
	ErrReceiverAccountInactive = errors.New("receiver account is not active")
	ErrAccountAlreadyFrozen    = errors.New("account is already frozen")
	ErrAccountNotFrozen        = errors.New("account is not frozen")
	ErrAccountClosed           = errors.New("account is closed")
	ErrBalanceNotZero          = errors.New("cannot close account with remaining balance")
	ErrTransferContention      = errors.New("transfer aborted after repeated lock contention")
)

// TransferParams carries everything the ledger needs to execute one transfer
// atomically. Validation beyond the locked status/balance re-check is the
// service layer's job.
type TransferParams struct {
	ActingUserID      int64
	SenderAccountID   int64
	ReceiverAccountID int64
	Amount            decimal.Decimal
	Description       string
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods
	GetUserByID(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByLogin(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUserRole(ctx context.Context, userID int64, role domain.Role) error
	SetUserActive(ctx context.Context, userID int64, active bool) error
	UpdateUserProfile(ctx context.Context, userID int64, fullName, phone string) error
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string, mustChange bool) error
	RecordFailedLogin(ctx context.Context, userID int64, maxAttempts int, lockout time.Duration) (*domain.User, error)
	RecordSuccessfulLogin(ctx context.Context, userID int64) error
	ListUsersByRole(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, int64, error)

	// Account methods
	GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	CountUserAccounts(ctx context.Context, userID int64) (int, error)
	AccountNumberExists(ctx context.Context, accountNumber string) (bool, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	ListUserAccounts(ctx context.Context, userID int64) ([]domain.Account, error)
	FreezeAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	UnfreezeAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	CloseAccount(ctx context.Context, accountID int64) (*domain.Account, error)

	// Ledger methods
	PerformTransfer(ctx context.Context, params TransferParams) (*domain.TransferResult, error)
	GetTransactionByID(ctx context.Context, transactionID string) (*domain.TransactionView, error)
	ListAccountTransactions(ctx context.Context, accountID int64, limit, offset int) ([]domain.TransactionView, int64, error)
	FilterAccountTransactions(ctx context.Context, accountID int64, filter domain.TransactionFilter) ([]domain.TransactionView, int64, error)
	ListAllTransactions(ctx context.Context, limit, offset int) ([]domain.TransactionView, int64, error)

	// Audit methods
	InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error
	ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, int64, error)
	ListUserAuditLogs(ctx context.Context, userID int64, limit, offset int) ([]domain.AuditLog, int64, error)

	// Support ticket methods
	CreateTicket(ctx context.Context, ticket *domain.SupportTicket) error
	GetTicketByID(ctx context.Context, ticketID string) (*domain.SupportTicket, error)
	ListCustomerTickets(ctx context.Context, customerID int64, limit, offset int) ([]domain.SupportTicket, int64, error)
	ListOpenTickets(ctx context.Context, limit, offset int) ([]domain.SupportTicket, int64, error)
	UpdateTicketStatus(ctx context.Context, ticketRowID int64, status domain.TicketStatus, agentID *int64, resolvedAt *time.Time) error
	AddTicketNote(ctx context.Context, note *domain.TicketNote) error
	ListTicketNotes(ctx context.Context, ticketRowID int64, includeInternal bool) ([]domain.TicketNote, error)
}
