package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

func newAccountFixture() (*fakeRepo, *AccountService) {
	repo := newFakeRepo()
	audit := NewAuditRecorder(repo, &stubPublisher{})
	return repo, NewAccountService(repo, audit)
}

func TestOpenAccountAssignsUniqueNumbers(t *testing.T) {
	repo, svc := newAccountFixture()
	owner := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})

	seen := make(map[string]bool)
	for i := 0; i < maxAccountsPerUser; i++ {
		account, err := svc.OpenAccount(context.Background(), owner, 0, domain.AccountTypeChecking, decimal.Zero)
		if err != nil {
			t.Fatalf("account %d: %v", i, err)
		}
		if !domain.ValidAccountNumber(account.AccountNumber) {
			t.Fatalf("bad account number %q", account.AccountNumber)
		}
		if seen[account.AccountNumber] {
			t.Fatalf("duplicate account number %q", account.AccountNumber)
		}
		seen[account.AccountNumber] = true
		if account.Status != domain.AccountStatusActive {
			t.Fatalf("new account status = %s, want active", account.Status)
		}
	}

	_, err := svc.OpenAccount(context.Background(), owner, 0, domain.AccountTypeSavings, decimal.Zero)
	if !errors.Is(err, ErrAccountLimit) {
		t.Fatalf("account %d: got %v, want ErrAccountLimit", maxAccountsPerUser+1, err)
	}
}

func TestOpenAccountOnBehalfOfUser(t *testing.T) {
	repo, svc := newAccountFixture()
	admin := repo.addUser(domain.User{Username: "root", Role: domain.RoleAdmin, IsActive: true})
	customer := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	other := repo.addUser(domain.User{Username: "bob", Role: domain.RoleCustomer, IsActive: true})

	account, err := svc.OpenAccount(context.Background(), admin, customer.ID, domain.AccountTypeChecking, decimal.Zero)
	if err != nil {
		t.Fatalf("admin on-behalf open failed: %v", err)
	}
	if account.UserID != customer.ID {
		t.Fatalf("account owner = %d, want %d", account.UserID, customer.ID)
	}

	// Customers may only open their own accounts.
	if _, err := svc.OpenAccount(context.Background(), customer, other.ID, domain.AccountTypeChecking, decimal.Zero); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("customer on-behalf got %v, want ErrPermissionDenied", err)
	}

	// The target user must exist.
	if _, err := svc.OpenAccount(context.Background(), admin, 9999, domain.AccountTypeChecking, decimal.Zero); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("unknown target got %v, want ErrUserNotFound", err)
	}
}

// 1000 consecutive allocations must all be well-formed and distinct once each
// drawn number is registered as taken.
func TestAccountNumberAllocationDistinctness(t *testing.T) {
	repo, svc := newAccountFixture()
	owner := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		number, err := svc.allocateAccountNumber(context.Background())
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if !domain.ValidAccountNumber(number) {
			t.Fatalf("allocation %d: bad account number %q", i, number)
		}
		if seen[number] {
			t.Fatalf("allocation %d: duplicate account number %q", i, number)
		}
		seen[number] = true
		repo.addAccount(domain.Account{
			AccountNumber: number,
			UserID:        owner.ID,
			Status:        domain.AccountStatusActive,
		})
	}
}

func TestOpenAccountValidatesOpeningBalance(t *testing.T) {
	repo, svc := newAccountFixture()
	owner := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})

	for _, balance := range []string{"-1.00", "0.001"} {
		_, err := svc.OpenAccount(context.Background(), owner, 0, domain.AccountTypeChecking, mustDecimal(t, balance))
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("balance %s: got %v, want ErrInvalidAmount", balance, err)
		}
	}

	account, err := svc.OpenAccount(context.Background(), owner, 0, domain.AccountTypeSavings, mustDecimal(t, "500.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !account.Balance.Equal(mustDecimal(t, "500.00")) || !account.OpeningBalance.Equal(account.Balance) {
		t.Fatalf("balance/opening = %s/%s, want 500.00/500.00", account.Balance, account.OpeningBalance)
	}
}

func TestFreezeUnfreezeStateMachine(t *testing.T) {
	repo, svc := newAccountFixture()
	owner := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	admin := repo.addUser(domain.User{Username: "root", Role: domain.RoleAdmin, IsActive: true})
	account := repo.addAccount(domain.Account{
		AccountNumber: "ACC-0000000001",
		UserID:        owner.ID,
		Status:        domain.AccountStatusActive,
	})

	// Customers may not freeze, not even their own account.
	if _, err := svc.FreezeAccount(context.Background(), owner, account.AccountNumber, "x"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("customer freeze got %v, want ErrPermissionDenied", err)
	}

	frozen, err := svc.FreezeAccount(context.Background(), admin, account.AccountNumber, "fraud review")
	if err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	if frozen.Status != domain.AccountStatusFrozen {
		t.Fatalf("status = %s, want frozen", frozen.Status)
	}

	if _, err := svc.FreezeAccount(context.Background(), admin, account.AccountNumber, "again"); !errors.Is(err, store.ErrAccountAlreadyFrozen) {
		t.Fatalf("double freeze got %v, want ErrAccountAlreadyFrozen", err)
	}

	unfrozen, err := svc.UnfreezeAccount(context.Background(), admin, account.AccountNumber, "cleared")
	if err != nil {
		t.Fatalf("unfreeze failed: %v", err)
	}
	if unfrozen.Status != domain.AccountStatusActive {
		t.Fatalf("status = %s, want active", unfrozen.Status)
	}

	if _, err := svc.UnfreezeAccount(context.Background(), admin, account.AccountNumber, "again"); !errors.Is(err, store.ErrAccountNotFrozen) {
		t.Fatalf("unfreeze active got %v, want ErrAccountNotFrozen", err)
	}

	actions := repo.auditActions()
	want := []domain.AuditAction{domain.AuditActionAccountFreeze, domain.AuditActionAccountUnfreeze}
	if len(actions) != len(want) {
		t.Fatalf("audit actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("audit actions = %v, want %v", actions, want)
		}
	}
}

func TestCloseAccountRequiresZeroBalance(t *testing.T) {
	repo, svc := newAccountFixture()
	owner := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	account := repo.addAccount(domain.Account{
		AccountNumber: "ACC-0000000001",
		UserID:        owner.ID,
		Balance:       mustDecimal(t, "0.01"),
		Status:        domain.AccountStatusActive,
	})

	if _, err := svc.CloseAccount(context.Background(), owner, account.AccountNumber); !errors.Is(err, store.ErrBalanceNotZero) {
		t.Fatalf("got %v, want ErrBalanceNotZero", err)
	}

	repo.mu.Lock()
	repo.accounts[account.ID].Balance = decimal.Zero
	repo.mu.Unlock()

	closed, err := svc.CloseAccount(context.Background(), owner, account.AccountNumber)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != domain.AccountStatusClosed {
		t.Fatalf("status = %s, want closed", closed.Status)
	}

	// Closed is terminal.
	if _, err := svc.CloseAccount(context.Background(), owner, account.AccountNumber); !errors.Is(err, store.ErrAccountClosed) {
		t.Fatalf("re-close got %v, want ErrAccountClosed", err)
	}

	admin := repo.addUser(domain.User{Username: "root", Role: domain.RoleAdmin, IsActive: true})
	if _, err := svc.FreezeAccount(context.Background(), admin, account.AccountNumber, "x"); !errors.Is(err, store.ErrAccountClosed) {
		t.Fatalf("freeze closed got %v, want ErrAccountClosed", err)
	}
}

func TestCloseAccountOwnershipRules(t *testing.T) {
	repo, svc := newAccountFixture()
	owner := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	other := repo.addUser(domain.User{Username: "bob", Role: domain.RoleCustomer, IsActive: true})
	admin := repo.addUser(domain.User{Username: "root", Role: domain.RoleAdmin, IsActive: true})
	account := repo.addAccount(domain.Account{
		AccountNumber: "ACC-0000000001",
		UserID:        owner.ID,
		Status:        domain.AccountStatusActive,
	})

	if _, err := svc.CloseAccount(context.Background(), other, account.AccountNumber); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-owner close got %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.CloseAccount(context.Background(), admin, account.AccountNumber); err != nil {
		t.Fatalf("admin close failed: %v", err)
	}
}

func TestAccountViewAccess(t *testing.T) {
	repo, svc := newAccountFixture()
	owner := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	stranger := repo.addUser(domain.User{Username: "bob", Role: domain.RoleCustomer, IsActive: true})
	agent := repo.addUser(domain.User{Username: "sue", Role: domain.RoleSupportAgent, IsActive: true})
	account := repo.addAccount(domain.Account{
		AccountNumber: "ACC-0000000001",
		UserID:        owner.ID,
		Status:        domain.AccountStatusActive,
	})

	if _, err := svc.GetAccount(context.Background(), owner, account.AccountNumber); err != nil {
		t.Fatalf("owner view failed: %v", err)
	}
	if _, err := svc.GetAccount(context.Background(), stranger, account.AccountNumber); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("stranger view got %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.GetAccount(context.Background(), agent, account.AccountNumber); err != nil {
		t.Fatalf("agent view failed: %v", err)
	}
	if _, err := svc.ListUserAccounts(context.Background(), agent, owner.ID); err != nil {
		t.Fatalf("agent list failed: %v", err)
	}
	if _, err := svc.ListUserAccounts(context.Background(), stranger, owner.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("stranger list got %v, want ErrPermissionDenied", err)
	}
}
