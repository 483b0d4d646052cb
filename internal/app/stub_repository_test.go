package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
	"github.com/meridianbank/backoffice-service/pkg/rabbitmq"
)

// fakeRepo is a mutex-guarded in-memory store.Repository used by the service
// tests. PerformTransfer mutates both balances and appends the ledger pair
// under one lock, which is what lets the concurrency tests assert
// conservation.
type fakeRepo struct {
	mu           sync.Mutex
	users        map[int64]*domain.User
	accounts     map[int64]*domain.Account
	transactions []domain.Transaction
	audits       []domain.AuditLog
	tickets      map[int64]*domain.SupportTicket
	notes        []domain.TicketNote
	nextID       int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[int64]*domain.User),
		accounts: make(map[int64]*domain.Account),
		tickets:  make(map[int64]*domain.SupportTicket),
		nextID:   1,
	}
}

func (f *fakeRepo) allocID() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeRepo) addUser(u domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.allocID()
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeRepo) addAccount(a domain.Account) *domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == 0 {
		a.ID = f.allocID()
	}
	f.accounts[a.ID] = &a
	return &a
}

func (f *fakeRepo) auditActions() []domain.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]domain.AuditAction, len(f.audits))
	for i, entry := range f.audits {
		actions[i] = entry.Action
	}
	return actions
}

func (f *fakeRepo) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepo) GetUserByLogin(ctx context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(username))
	for _, u := range f.users {
		if strings.ToLower(u.Username) == needle {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeRepo) CreateUser(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return store.ErrUserExists
		}
	}
	user.ID = f.allocID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdateUserRole(ctx context.Context, userID int64, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeRepo) SetUserActive(ctx context.Context, userID int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeRepo) UpdateUserProfile(ctx context.Context, userID int64, fullName, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.FullName = fullName
	u.Phone = phone
	return nil
}

func (f *fakeRepo) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string, mustChange bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.MustChangeCredentials = mustChange
	return nil
}

func (f *fakeRepo) RecordFailedLogin(ctx context.Context, userID int64, maxAttempts int, lockout time.Duration) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if u.LockedUntil != nil && !u.LockedUntil.After(time.Now()) {
		u.FailedLoginAttempts = 1
	} else {
		u.FailedLoginAttempts++
	}
	if u.FailedLoginAttempts >= maxAttempts {
		until := time.Now().Add(lockout)
		u.LockedUntil = &until
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepo) RecordSuccessfulLogin(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	now := time.Now()
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &now
	return nil
}

func (f *fakeRepo) ListUsersByRole(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []domain.User
	for _, u := range f.users {
		if u.Role == role {
			users = append(users, *u)
		}
	}
	return users, int64(len(users)), nil
}

func (f *fakeRepo) GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeRepo) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.AccountNumber == accountNumber {
			copied := *a
			return &copied, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (f *fakeRepo) CountUserAccounts(ctx context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.accounts {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) AccountNumberExists(ctx context.Context, accountNumber string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.AccountNumber == accountNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateAccount(ctx context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.ID = f.allocID()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	f.accounts[account.ID] = &copied
	return nil
}

func (f *fakeRepo) ListUserAccounts(ctx context.Context, userID int64) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var accounts []domain.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			accounts = append(accounts, *a)
		}
	}
	return accounts, nil
}

func (f *fakeRepo) FreezeAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	switch a.Status {
	case domain.AccountStatusFrozen:
		return nil, store.ErrAccountAlreadyFrozen
	case domain.AccountStatusClosed:
		return nil, store.ErrAccountClosed
	}
	a.Status = domain.AccountStatusFrozen
	copied := *a
	return &copied, nil
}

func (f *fakeRepo) UnfreezeAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if a.Status != domain.AccountStatusFrozen {
		return nil, store.ErrAccountNotFrozen
	}
	a.Status = domain.AccountStatusActive
	copied := *a
	return &copied, nil
}

func (f *fakeRepo) CloseAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if a.Status == domain.AccountStatusClosed {
		return nil, store.ErrAccountClosed
	}
	if !a.Balance.IsZero() {
		return nil, store.ErrBalanceNotZero
	}
	a.Status = domain.AccountStatusClosed
	copied := *a
	return &copied, nil
}

func (f *fakeRepo) PerformTransfer(ctx context.Context, params store.TransferParams) (*domain.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sender, ok := f.accounts[params.SenderAccountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	receiver, ok := f.accounts[params.ReceiverAccountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if sender.Status != domain.AccountStatusActive {
		return nil, store.ErrSenderAccountInactive
	}
	if receiver.Status != domain.AccountStatusActive {
		return nil, store.ErrReceiverAccountInactive
	}
	if sender.Balance.LessThan(params.Amount) {
		return nil, store.ErrInsufficientFunds
	}

	sender.Balance = sender.Balance.Sub(params.Amount)
	receiver.Balance = receiver.Balance.Add(params.Amount)

	txID := uuid.NewString()
	createdAt := time.Now().UTC()
	for _, txType := range []domain.TransactionType{domain.TransactionTypeDebit, domain.TransactionTypeCredit} {
		f.transactions = append(f.transactions, domain.Transaction{
			ID:                f.allocID(),
			TransactionID:     txID,
			SenderID:          params.ActingUserID,
			SenderAccountID:   sender.ID,
			ReceiverAccountID: receiver.ID,
			Amount:            params.Amount,
			TransactionType:   txType,
			Description:       params.Description,
			CreatedAt:         createdAt,
		})
	}

	return &domain.TransferResult{
		TransactionID:   txID,
		SenderAccount:   sender.AccountNumber,
		ReceiverAccount: receiver.AccountNumber,
		Amount:          params.Amount,
		CreatedAt:       createdAt,
	}, nil
}

func (f *fakeRepo) view(tx domain.Transaction) domain.TransactionView {
	sender := f.accounts[tx.SenderAccountID]
	receiver := f.accounts[tx.ReceiverAccountID]
	return domain.TransactionView{
		TransactionID:   tx.TransactionID,
		SenderAccount:   sender.AccountNumber,
		ReceiverAccount: receiver.AccountNumber,
		Amount:          tx.Amount,
		TransactionType: tx.TransactionType,
		Description:     tx.Description,
		CreatedAt:       tx.CreatedAt,
	}
}

func (f *fakeRepo) GetTransactionByID(ctx context.Context, transactionID string) (*domain.TransactionView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.transactions {
		if tx.TransactionID == transactionID && tx.TransactionType == domain.TransactionTypeDebit {
			v := f.view(tx)
			return &v, nil
		}
	}
	return nil, store.ErrTransactionNotFound
}

func (f *fakeRepo) ListAccountTransactions(ctx context.Context, accountID int64, limit, offset int) ([]domain.TransactionView, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var views []domain.TransactionView
	for _, tx := range f.transactions {
		if (tx.SenderAccountID == accountID && tx.TransactionType == domain.TransactionTypeDebit) ||
			(tx.ReceiverAccountID == accountID && tx.TransactionType == domain.TransactionTypeCredit) {
			views = append(views, f.view(tx))
		}
	}
	return views, int64(len(views)), nil
}

func (f *fakeRepo) FilterAccountTransactions(ctx context.Context, accountID int64, filter domain.TransactionFilter) ([]domain.TransactionView, int64, error) {
	views, total, err := f.ListAccountTransactions(ctx, accountID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	if filter.MinAmount == nil && filter.MaxAmount == nil && filter.TransactionType == nil &&
		filter.StartDate == nil && filter.EndDate == nil {
		return views, total, nil
	}
	var filtered []domain.TransactionView
	for _, v := range views {
		if filter.TransactionType != nil && v.TransactionType != *filter.TransactionType {
			continue
		}
		if filter.MinAmount != nil && v.Amount.LessThan(*filter.MinAmount) {
			continue
		}
		if filter.MaxAmount != nil && v.Amount.GreaterThan(*filter.MaxAmount) {
			continue
		}
		filtered = append(filtered, v)
	}
	return filtered, int64(len(filtered)), nil
}

func (f *fakeRepo) ListAllTransactions(ctx context.Context, limit, offset int) ([]domain.TransactionView, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var views []domain.TransactionView
	for _, tx := range f.transactions {
		if tx.TransactionType == domain.TransactionTypeDebit {
			views = append(views, f.view(tx))
		}
	}
	return views, int64(len(views)), nil
}

func (f *fakeRepo) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.allocID()
	entry.Timestamp = time.Now()
	f.audits = append(f.audits, *entry)
	return nil
}

func (f *fakeRepo) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var logs []domain.AuditLog
	for _, entry := range f.audits {
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		if filter.UserID != nil && (entry.UserID == nil || *entry.UserID != *filter.UserID) {
			continue
		}
		logs = append(logs, entry)
	}
	return logs, int64(len(logs)), nil
}

func (f *fakeRepo) ListUserAuditLogs(ctx context.Context, userID int64, limit, offset int) ([]domain.AuditLog, int64, error) {
	return f.ListAuditLogs(ctx, domain.AuditFilter{UserID: &userID})
}

func (f *fakeRepo) CreateTicket(ctx context.Context, ticket *domain.SupportTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket.ID = f.allocID()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeRepo) GetTicketByID(ctx context.Context, ticketID string) (*domain.SupportTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.TicketID == ticketID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, store.ErrTicketNotFound
}

func (f *fakeRepo) ListCustomerTickets(ctx context.Context, customerID int64, limit, offset int) ([]domain.SupportTicket, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tickets []domain.SupportTicket
	for _, t := range f.tickets {
		if t.CustomerID == customerID {
			tickets = append(tickets, *t)
		}
	}
	return tickets, int64(len(tickets)), nil
}

func (f *fakeRepo) ListOpenTickets(ctx context.Context, limit, offset int) ([]domain.SupportTicket, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tickets []domain.SupportTicket
	for _, t := range f.tickets {
		if t.Status != domain.TicketStatusResolved {
			tickets = append(tickets, *t)
		}
	}
	return tickets, int64(len(tickets)), nil
}

func (f *fakeRepo) UpdateTicketStatus(ctx context.Context, ticketRowID int64, status domain.TicketStatus, agentID *int64, resolvedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketRowID]
	if !ok {
		return store.ErrTicketNotFound
	}
	t.Status = status
	if agentID != nil {
		t.AssignedAgentID = agentID
	}
	t.ResolvedAt = resolvedAt
	return nil
}

func (f *fakeRepo) AddTicketNote(ctx context.Context, note *domain.TicketNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[note.TicketRowID]; !ok {
		return store.ErrTicketNotFound
	}
	note.ID = f.allocID()
	note.CreatedAt = time.Now()
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeRepo) ListTicketNotes(ctx context.Context, ticketRowID int64, includeInternal bool) ([]domain.TicketNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var notes []domain.TicketNote
	for _, n := range f.notes {
		if n.TicketRowID != ticketRowID {
			continue
		}
		if n.IsInternal && !includeInternal {
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// stubPublisher records published events instead of talking to RabbitMQ.
type stubPublisher struct {
	mu             sync.Mutex
	transferEvents []rabbitmq.TransferEvent
	securityEvents []rabbitmq.SecurityEvent
}

func (p *stubPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return nil
}

func (p *stubPublisher) PublishTransferEvent(ctx context.Context, event rabbitmq.TransferEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transferEvents = append(p.transferEvents, event)
	return nil
}

func (p *stubPublisher) PublishSecurityEvent(ctx context.Context, event rabbitmq.SecurityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.securityEvents = append(p.securityEvents, event)
	return nil
}

func (p *stubPublisher) Close() {}

func mustDecimal(t interface{ Fatalf(string, ...interface{}) }, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}
