package bankaccounts

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
)

type stubAccountsRepo struct {
	accounts       map[uuid.UUID]*models.BankAccount
	userRecipients map[uuid.UUID]string
}

func newStubAccountsRepo() *stubAccountsRepo {
	return &stubAccountsRepo{
		accounts:       make(map[uuid.UUID]*models.BankAccount),
		userRecipients: make(map[uuid.UUID]string),
	}
}

func (s *stubAccountsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubAccountsRepo) CreateAccount(ctx context.Context, account *models.BankAccount) (*models.BankAccount, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	clone := *account
	s.accounts[account.ID] = &clone
	return account, nil
}

func (s *stubAccountsRepo) FindAccount(ctx context.Context, accountID uuid.UUID) (*models.BankAccount, error) {
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *account
	return &clone, nil
}

func (s *stubAccountsRepo) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	for _, account := range s.accounts {
		if account.UserID == userID {
			accounts = append(accounts, *account)
		}
	}
	return accounts, nil
}

func (s *stubAccountsRepo) CountAccounts(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, account := range s.accounts {
		if account.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *stubAccountsRepo) ClearPrimary(ctx context.Context, userID uuid.UUID) error {
	for _, account := range s.accounts {
		if account.UserID == userID {
			account.IsPrimary = false
		}
	}
	return nil
}

func (s *stubAccountsRepo) SetPrimary(ctx context.Context, accountID uuid.UUID) error {
	account, ok := s.accounts[accountID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	account.IsPrimary = true
	return nil
}

func (s *stubAccountsRepo) UpdateUserRecipient(ctx context.Context, userID uuid.UUID, recipientCode string) error {
	s.userRecipients[userID] = recipientCode
	return nil
}

type stubRecipientGateway struct {
	calls int
	err   error
}

func (s *stubRecipientGateway) CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, holderName string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("RCP_%d", s.calls), nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *stubAccountsRepo, gateway *stubRecipientGateway) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Tx:      stubTx{},
		Gateway: gateway,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func validInput() AddBankAccountInput {
	return AddBankAccountInput{
		AccountNumber:     "1234567890",
		BankName:          "Standard Bank",
		BankCode:          "051",
		AccountHolderName: "Thandi Mokoena",
	}
}

func TestAddBankAccountFirstIsPrimary(t *testing.T) {
	repo := newStubAccountsRepo()
	gateway := &stubRecipientGateway{}
	svc := newTestService(t, repo, gateway)
	userID := uuid.New()

	account, err := svc.AddBankAccount(context.Background(), userID, validInput())
	if err != nil {
		t.Fatalf("add bank account: %v", err)
	}
	if !account.IsPrimary {
		t.Fatal("first account must be primary")
	}
	if account.PaystackRecipientCode != "RCP_1" {
		t.Fatalf("unexpected recipient code %q", account.PaystackRecipientCode)
	}
	if repo.userRecipients[userID] != "RCP_1" {
		t.Fatalf("user recipient snapshot not updated: %q", repo.userRecipients[userID])
	}
}

func TestAddBankAccountSecondStaysSecondary(t *testing.T) {
	repo := newStubAccountsRepo()
	gateway := &stubRecipientGateway{}
	svc := newTestService(t, repo, gateway)
	userID := uuid.New()

	if _, err := svc.AddBankAccount(context.Background(), userID, validInput()); err != nil {
		t.Fatalf("add first account: %v", err)
	}
	second, err := svc.AddBankAccount(context.Background(), userID, validInput())
	if err != nil {
		t.Fatalf("add second account: %v", err)
	}
	if second.IsPrimary {
		t.Fatal("second account must not steal primary unless asked")
	}
	// The snapshot still points at the first account's recipient.
	if repo.userRecipients[userID] != "RCP_1" {
		t.Fatalf("snapshot moved to %q", repo.userRecipients[userID])
	}
}

func TestAddBankAccountMakePrimaryDemotesOthers(t *testing.T) {
	repo := newStubAccountsRepo()
	gateway := &stubRecipientGateway{}
	svc := newTestService(t, repo, gateway)
	userID := uuid.New()

	first, err := svc.AddBankAccount(context.Background(), userID, validInput())
	if err != nil {
		t.Fatalf("add first account: %v", err)
	}

	input := validInput()
	input.MakePrimary = true
	second, err := svc.AddBankAccount(context.Background(), userID, input)
	if err != nil {
		t.Fatalf("add second account: %v", err)
	}
	if !second.IsPrimary {
		t.Fatal("requested primary not honored")
	}
	if repo.accounts[first.ID].IsPrimary {
		t.Fatal("old primary not demoted")
	}
	if repo.userRecipients[userID] != second.PaystackRecipientCode {
		t.Fatalf("snapshot not refreshed: %q", repo.userRecipients[userID])
	}
}

func TestAddBankAccountValidation(t *testing.T) {
	repo := newStubAccountsRepo()
	gateway := &stubRecipientGateway{}
	svc := newTestService(t, repo, gateway)

	input := validInput()
	input.AccountNumber = "  "

	_, err := svc.AddBankAccount(context.Background(), uuid.New(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatal("invalid input must not reach the gateway")
	}
}

func TestAddBankAccountGatewayFailure(t *testing.T) {
	repo := newStubAccountsRepo()
	gateway := &stubRecipientGateway{err: pkgerrors.New(pkgerrors.CodeDependency, "could not resolve account")}
	svc := newTestService(t, repo, gateway)

	_, err := svc.AddBankAccount(context.Background(), uuid.New(), validInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(repo.accounts) != 0 {
		t.Fatal("rejected account must not be stored")
	}
}

func TestSetPrimaryAccount(t *testing.T) {
	repo := newStubAccountsRepo()
	gateway := &stubRecipientGateway{}
	svc := newTestService(t, repo, gateway)
	userID := uuid.New()

	first, err := svc.AddBankAccount(context.Background(), userID, validInput())
	if err != nil {
		t.Fatalf("add first account: %v", err)
	}
	second, err := svc.AddBankAccount(context.Background(), userID, validInput())
	if err != nil {
		t.Fatalf("add second account: %v", err)
	}

	promoted, err := svc.SetPrimaryAccount(context.Background(), userID, second.ID)
	if err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if !promoted.IsPrimary {
		t.Fatal("promoted account not primary")
	}
	if repo.accounts[first.ID].IsPrimary {
		t.Fatal("old primary not demoted")
	}
	if repo.userRecipients[userID] != second.PaystackRecipientCode {
		t.Fatalf("snapshot not refreshed: %q", repo.userRecipients[userID])
	}
}

func TestSetPrimaryAccountForeignAccount(t *testing.T) {
	repo := newStubAccountsRepo()
	gateway := &stubRecipientGateway{}
	svc := newTestService(t, repo, gateway)

	owner := uuid.New()
	account, err := svc.AddBankAccount(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("add account: %v", err)
	}

	_, err = svc.SetPrimaryAccount(context.Background(), uuid.New(), account.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
