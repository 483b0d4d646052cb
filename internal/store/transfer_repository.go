/**
 * @description
 * This file implements the atomic transfer path and the ledger read queries.
 * PerformTransfer is the only code that moves money: it locks both account
 * rows in one database transaction, re-verifies status and balance on the
 * locked rows, applies the debit and credit, and records the immutable
 * DEBIT/CREDIT ledger pair before committing. Either everything commits or
 * nothing does.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/google/uuid: Shared transaction ids for ledger pairs.
 * - github.com/shopspring/decimal: Monetary amounts.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

// maxTransferAttempts bounds retries when PostgreSQL aborts the transaction
// for serialization failure (40001) or deadlock (40P01).
const maxTransferAttempts = 3

// PerformTransfer executes one balance-conserving transfer. Both account rows
// are locked FOR UPDATE in ascending id order so concurrent transfers over the
// same pair acquire locks in the same order regardless of direction. All
// preconditions are re-verified against the locked rows; values the caller
// validated earlier in the request may be stale by the time the locks are held.
func (r *PostgresRepository) PerformTransfer(ctx context.Context, params TransferParams) (*domain.TransferResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxTransferAttempts; attempt++ {
		result, err := r.performTransferOnce(ctx, params)
		if err == nil {
			return result, nil
		}
		if !isRetryableTxError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrTransferContention, lastErr)
}

func (r *PostgresRepository) performTransferOnce(ctx context.Context, params TransferParams) (*domain.TransferResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sender, receiver, err := lockAccountPair(ctx, tx, params.SenderAccountID, params.ReceiverAccountID)
	if err != nil {
		return nil, err
	}

	if sender.Status != domain.AccountStatusActive {
		return nil, ErrSenderAccountInactive
	}
	if receiver.Status != domain.AccountStatusActive {
		return nil, ErrReceiverAccountInactive
	}
	if sender.Balance.LessThan(params.Amount) {
		return nil, ErrInsufficientFunds
	}

	amount := params.Amount.StringFixed(2)
	_, err = tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1::numeric, updated_at = NOW() WHERE id = $2`,
		amount, sender.ID)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1::numeric, updated_at = NOW() WHERE id = $2`,
		amount, receiver.ID)
	if err != nil {
		return nil, err
	}

	// One transaction id and one timestamp shared by both halves of the pair.
	transactionID := uuid.NewString()
	createdAt := time.Now().UTC()

	insert := `
		INSERT INTO transactions
			(transaction_id, sender_id, sender_account_id, receiver_account_id, amount, transaction_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, insert,
		transactionID, params.ActingUserID, sender.ID, receiver.ID,
		amount, domain.TransactionTypeDebit, params.Description, createdAt)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, insert,
		transactionID, params.ActingUserID, sender.ID, receiver.ID,
		amount, domain.TransactionTypeCredit, params.Description, createdAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.TransferResult{
		TransactionID:   transactionID,
		SenderAccount:   sender.AccountNumber,
		ReceiverAccount: receiver.AccountNumber,
		Amount:          params.Amount,
		CreatedAt:       createdAt,
	}, nil
}

// lockAccountPair acquires FOR UPDATE locks on both accounts in ascending id
// order and hands back the rows keyed to the caller's sender/receiver roles.
func lockAccountPair(ctx context.Context, tx pgx.Tx, senderID, receiverID int64) (sender, receiver *domain.Account, err error) {
	first, second := senderID, receiverID
	if second < first {
		first, second = second, first
	}

	lock := func(id int64) (*domain.Account, error) {
		return scanAccount(tx.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	}

	a, err := lock(first)
	if err != nil {
		return nil, nil, err
	}
	b, err := lock(second)
	if err != nil {
		return nil, nil, err
	}

	if a.ID == senderID {
		return a, b, nil
	}
	return b, a, nil
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const transactionViewColumns = `
	t.transaction_id, s.account_number, r.account_number, t.amount::text,
	t.transaction_type, t.description, t.created_at`

const transactionViewFrom = `
	FROM transactions t
	JOIN accounts s ON s.id = t.sender_account_id
	JOIN accounts r ON r.id = t.receiver_account_id`

func collectTransactionViews(rows pgx.Rows) ([]domain.TransactionView, error) {
	var views []domain.TransactionView
	for rows.Next() {
		var v domain.TransactionView
		var amount string
		if err := rows.Scan(
			&v.TransactionID, &v.SenderAccount, &v.ReceiverAccount, &amount,
			&v.TransactionType, &v.Description, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		var err error
		if v.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// GetTransactionByID retrieves the DEBIT half of a transfer pair by its shared
// transaction id.
func (r *PostgresRepository) GetTransactionByID(ctx context.Context, transactionID string) (*domain.TransactionView, error) {
	query := `SELECT` + transactionViewColumns + transactionViewFrom + `
		WHERE t.transaction_id = $1 AND t.transaction_type = $2`
	var v domain.TransactionView
	var amount string
	err := r.db.QueryRow(ctx, query, transactionID, domain.TransactionTypeDebit).Scan(
		&v.TransactionID, &v.SenderAccount, &v.ReceiverAccount, &amount,
		&v.TransactionType, &v.Description, &v.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if v.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return &v, nil
}

// accountPerspective restricts ledger rows to the ones that describe the given
// account's side of each transfer: DEBIT rows where it sent, CREDIT rows where
// it received.
const accountPerspective = `
	((t.sender_account_id = $1 AND t.transaction_type = 'debit')
		OR (t.receiver_account_id = $1 AND t.transaction_type = 'credit'))`

// ListAccountTransactions returns one account's transaction history, newest
// first, with the total count before pagination.
func (r *PostgresRepository) ListAccountTransactions(ctx context.Context, accountID int64, limit, offset int) ([]domain.TransactionView, int64, error) {
	limit, offset = clampPage(limit, offset, 50)

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions t WHERE `+accountPerspective, accountID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT` + transactionViewColumns + transactionViewFrom + `
		WHERE ` + accountPerspective + `
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	views, err := collectTransactionViews(rows)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// FilterAccountTransactions is the privileged history query with optional
// date, type and amount-range bounds.
func (r *PostgresRepository) FilterAccountTransactions(ctx context.Context, accountID int64, filter domain.TransactionFilter) ([]domain.TransactionView, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset, 50)

	var minAmount, maxAmount *string
	if filter.MinAmount != nil {
		s := filter.MinAmount.StringFixed(2)
		minAmount = &s
	}
	if filter.MaxAmount != nil {
		s := filter.MaxAmount.StringFixed(2)
		maxAmount = &s
	}

	where := ` WHERE ` + accountPerspective + `
		AND ($2::timestamptz IS NULL OR t.created_at >= $2)
		AND ($3::timestamptz IS NULL OR t.created_at <= $3)
		AND ($4::text IS NULL OR t.transaction_type = $4)
		AND ($5::numeric IS NULL OR t.amount >= $5::numeric)
		AND ($6::numeric IS NULL OR t.amount <= $6::numeric)`
	args := []any{accountID, filter.StartDate, filter.EndDate, filter.TransactionType, minAmount, maxAmount}

	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions t`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT` + transactionViewColumns + transactionViewFrom + where + `
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $7 OFFSET $8`
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	views, err := collectTransactionViews(rows)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ListAllTransactions returns the system-wide ledger, DEBIT rows only so each
// transfer appears once, newest first.
func (r *PostgresRepository) ListAllTransactions(ctx context.Context, limit, offset int) ([]domain.TransactionView, int64, error) {
	limit, offset = clampPage(limit, offset, 50)

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions t WHERE t.transaction_type = $1`,
		domain.TransactionTypeDebit).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT` + transactionViewColumns + transactionViewFrom + `
		WHERE t.transaction_type = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, domain.TransactionTypeDebit, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	views, err := collectTransactionViews(rows)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}
