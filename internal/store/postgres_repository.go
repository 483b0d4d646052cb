/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface for users, accounts and audit logs. Monetary columns are
 * NUMERIC(18,2); values cross the driver boundary as text and are parsed into
 * decimal.Decimal so no binary floating point ever touches a balance.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, email, phone, password_hash, full_name, role, is_active,
	must_change_credentials, failed_login_attempts, locked_until, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.FullName, &u.Role,
		&u.IsActive, &u.MustChangeCredentials, &u.FailedLoginAttempts, &u.LockedUntil,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by their internal id.
func (r *PostgresRepository) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

// GetUserByLogin retrieves a user by case-insensitive username.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower(btrim($1))`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

// CreateUser inserts a new user and fills in its server-assigned fields.
// Unique-constraint violations surface as ErrUserExists.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, phone, password_hash, full_name, role, is_active, must_change_credentials)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.Username, user.Email, user.Phone, user.PasswordHash,
		user.FullName, user.Role, user.IsActive, user.MustChangeCredentials,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// UpdateUserRole changes a user's role.
func (r *PostgresRepository) UpdateUserRole(ctx context.Context, userID int64, role domain.Role) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetUserActive activates or deactivates a user.
func (r *PostgresRepository) SetUserActive(ctx context.Context, userID int64, active bool) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserProfile updates the caller-editable profile fields.
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, userID int64, fullName, phone string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE users SET full_name = $1, phone = $2, updated_at = NOW() WHERE id = $3`,
		fullName, phone, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserPassword replaces the password hash and sets the forced-change flag.
func (r *PostgresRepository) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string, mustChange bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, must_change_credentials = $2, updated_at = NOW() WHERE id = $3`,
		passwordHash, mustChange, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordFailedLogin atomically increments the failure counter and applies the
// lockout window once the threshold is reached. The counter resets when an
// expired lockout is retried.
func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, userID int64, maxAttempts int, lockout time.Duration) (*domain.User, error) {
	query := `
		UPDATE users
		SET
			failed_login_attempts = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= NOW() THEN 1
				ELSE failed_login_attempts + 1
			END,
			locked_until = CASE
				WHEN (
					CASE
						WHEN locked_until IS NOT NULL AND locked_until <= NOW() THEN 1
						ELSE failed_login_attempts + 1
					END
				) >= $2 THEN NOW() + ($3 * INTERVAL '1 second')
				ELSE locked_until
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, userID, maxAttempts, int(lockout.Seconds())))
}

// RecordSuccessfulLogin clears the lockout state and stamps last_login.
func (r *PostgresRepository) RecordSuccessfulLogin(ctx context.Context, userID int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, last_login = NOW(), updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsersByRole returns users holding a role, newest first, with the total count.
func (r *PostgresRepository) ListUsersByRole(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, int64, error) {
	limit, offset = clampPage(limit, offset, 50)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.FullName, &u.Role,
			&u.IsActive, &u.MustChangeCredentials, &u.FailedLoginAttempts, &u.LockedUntil,
			&u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

const accountColumns = `id, account_number, user_id, account_type, balance::text, status, opening_balance::text, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var balance, opening string
	err := row.Scan(
		&a.ID, &a.AccountNumber, &a.UserID, &a.AccountType, &balance,
		&a.Status, &opening, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	if a.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return nil, fmt.Errorf("parse opening balance: %w", err)
	}
	return &a, nil
}

// GetAccountByID retrieves an account by its internal id.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// GetAccountByNumber retrieves an account by its externally visible number.
func (r *PostgresRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountNumber))
}

// CountUserAccounts returns how many accounts a user currently owns.
func (r *PostgresRepository) CountUserAccounts(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// AccountNumberExists reports whether an account number is already allocated.
func (r *PostgresRepository) AccountNumberExists(ctx context.Context, accountNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, accountNumber).Scan(&exists)
	return exists, err
}

// CreateAccount inserts a new account and fills in its server-assigned fields.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (account_number, user_id, account_type, balance, status, opening_balance)
		VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		account.AccountNumber, account.UserID, account.AccountType,
		account.Balance.StringFixed(2), account.Status, account.OpeningBalance.StringFixed(2),
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

// ListUserAccounts returns all accounts owned by a user, oldest first.
func (r *PostgresRepository) ListUserAccounts(ctx context.Context, userID int64) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var balance, opening string
		if err := rows.Scan(
			&a.ID, &a.AccountNumber, &a.UserID, &a.AccountType, &balance,
			&a.Status, &opening, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse balance: %w", err)
		}
		if a.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
			return nil, fmt.Errorf("parse opening balance: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// FreezeAccount transitions an account to FROZEN. The precondition is checked
// against the locked row, not a value read earlier in the request, so two
// racing transitions resolve to last-committed-wins with each one's
// precondition verified at commit time.
func (r *PostgresRepository) FreezeAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	return r.transitionAccount(ctx, accountID, func(current *domain.Account) error {
		switch current.Status {
		case domain.AccountStatusFrozen:
			return ErrAccountAlreadyFrozen
		case domain.AccountStatusClosed:
			return ErrAccountClosed
		}
		return nil
	}, domain.AccountStatusFrozen)
}

// UnfreezeAccount transitions a FROZEN account back to ACTIVE.
func (r *PostgresRepository) UnfreezeAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	return r.transitionAccount(ctx, accountID, func(current *domain.Account) error {
		if current.Status != domain.AccountStatusFrozen {
			return ErrAccountNotFrozen
		}
		return nil
	}, domain.AccountStatusActive)
}

// CloseAccount transitions an account to CLOSED, requiring an exactly zero
// balance. CLOSED is terminal.
func (r *PostgresRepository) CloseAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	return r.transitionAccount(ctx, accountID, func(current *domain.Account) error {
		if current.Status == domain.AccountStatusClosed {
			return ErrAccountClosed
		}
		if !current.Balance.IsZero() {
			return ErrBalanceNotZero
		}
		return nil
	}, domain.AccountStatusClosed)
}

// transitionAccount locks the account row, re-validates the transition
// precondition against the persisted state, and commits the single-row status
// change.
func (r *PostgresRepository) transitionAccount(
	ctx context.Context,
	accountID int64,
	precondition func(*domain.Account) error,
	to domain.AccountStatus,
) (*domain.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := scanAccount(tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID))
	if err != nil {
		return nil, err
	}
	if err := precondition(account); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
		to, accountID).Scan(&account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	account.Status = to

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

// InsertAuditLog appends one audit row. Callers treat failures as operational
// noise, never as a reason to fail the documented operation.
func (r *PostgresRepository) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, action, resource_type, resource_id, details, ip_address)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id, timestamp
	`
	return r.db.QueryRow(ctx, query,
		entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, entry.Details, entry.IPAddress,
	).Scan(&entry.ID, &entry.Timestamp)
}

// ListAuditLogs returns audit rows matching the filter, newest first, with the
// total count before pagination.
func (r *PostgresRepository) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset, 50)

	where := ` WHERE ($1::text IS NULL OR action = $1)
		AND ($2::bigint IS NULL OR user_id = $2)
		AND ($3::timestamptz IS NULL OR timestamp >= $3)
		AND ($4::timestamptz IS NULL OR timestamp <= $4)`

	var action *domain.AuditAction = filter.Action

	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where,
		action, filter.UserID, filter.StartDate, filter.EndDate).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, action, COALESCE(resource_type, ''), COALESCE(resource_id, ''),
		       COALESCE(details, ''), COALESCE(ip_address, ''), timestamp
		FROM audit_logs` + where + `
		ORDER BY timestamp DESC
		LIMIT $5 OFFSET $6`
	rows, err := r.db.Query(ctx, query, action, filter.UserID, filter.StartDate, filter.EndDate, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs, err := collectAuditRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ListUserAuditLogs returns all audit rows for one user, newest first.
func (r *PostgresRepository) ListUserAuditLogs(ctx context.Context, userID int64, limit, offset int) ([]domain.AuditLog, int64, error) {
	limit, offset = clampPage(limit, offset, 50)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, action, COALESCE(resource_type, ''), COALESCE(resource_id, ''),
		       COALESCE(details, ''), COALESCE(ip_address, ''), timestamp
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs, err := collectAuditRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func collectAuditRows(rows pgx.Rows) ([]domain.AuditLog, error) {
	var logs []domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action, &entry.ResourceType,
			&entry.ResourceID, &entry.Details, &entry.IPAddress, &entry.Timestamp,
		); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func clampPage(limit, offset, defaultLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
