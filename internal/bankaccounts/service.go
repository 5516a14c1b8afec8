package bankaccounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AddBankAccountInput carries a new payout destination.
type AddBankAccountInput struct {
	AccountNumber     string
	BankName          string
	BankCode          string
	AccountHolderName string
	MakePrimary       bool
}

// Service manages seller payout destinations.
type Service interface {
	AddBankAccount(ctx context.Context, userID uuid.UUID, input AddBankAccountInput) (*models.BankAccount, error)
	ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error)
	SetPrimaryAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.BankAccount, error)
}

// ServiceParams configure the bank account service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Gateway RecipientGateway
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	gateway RecipientGateway
	logg    *logger.Logger
}

// NewService builds the bank account service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("bank account repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("recipient gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		gateway: params.Gateway,
		logg:    params.Logger,
	}, nil
}

// AddBankAccount registers the account with the gateway, stores it, and
// keeps exactly one primary per user. The first account is always
// primary; the primary's recipient code is mirrored onto the user row.
func (s *service) AddBankAccount(ctx context.Context, userID uuid.UUID, input AddBankAccountInput) (*models.BankAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	recipientCode, err := s.gateway.CreateTransferRecipient(ctx,
		input.AccountNumber, input.BankCode, input.AccountHolderName)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.CountAccounts(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count bank accounts")
	}
	makePrimary := input.MakePrimary || existing == 0

	account := &models.BankAccount{
		UserID:                userID,
		AccountNumber:         strings.TrimSpace(input.AccountNumber),
		BankName:              strings.TrimSpace(input.BankName),
		BankCode:              strings.TrimSpace(input.BankCode),
		AccountHolderName:     strings.TrimSpace(input.AccountHolderName),
		PaystackRecipientCode: recipientCode,
		IsVerified:            true,
		IsPrimary:             makePrimary,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if makePrimary {
			if err := repo.ClearPrimary(ctx, userID); err != nil {
				return fmt.Errorf("clear primary: %w", err)
			}
		}
		if _, err := repo.CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("create bank account: %w", err)
		}
		if makePrimary {
			if err := repo.UpdateUserRecipient(ctx, userID, recipientCode); err != nil {
				return fmt.Errorf("update user recipient: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store bank account")
	}

	ctx = s.logg.WithUserID(ctx, userID.String())
	s.logg.Info(s.logg.WithField(ctx, "primary", makePrimary), "bank account added")
	return account, nil
}

func (s *service) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bank accounts")
	}
	return accounts, nil
}

// SetPrimaryAccount promotes one of the user's accounts and refreshes
// the recipient snapshot on the user row.
func (s *service) SetPrimaryAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.BankAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}

	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bank account")
	}
	if account.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bank account belongs to another user")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearPrimary(ctx, userID); err != nil {
			return fmt.Errorf("clear primary: %w", err)
		}
		if err := repo.SetPrimary(ctx, accountID); err != nil {
			return fmt.Errorf("set primary: %w", err)
		}
		if err := repo.UpdateUserRecipient(ctx, userID, account.PaystackRecipientCode); err != nil {
			return fmt.Errorf("update user recipient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote bank account")
	}

	account.IsPrimary = true
	return account, nil
}

func validateInput(input AddBankAccountInput) error {
	missing := []string{}
	if strings.TrimSpace(input.AccountNumber) == "" {
		missing = append(missing, "account_number")
	}
	if strings.TrimSpace(input.BankName) == "" {
		missing = append(missing, "bank_name")
	}
	if strings.TrimSpace(input.BankCode) == "" {
		missing = append(missing, "bank_code")
	}
	if strings.TrimSpace(input.AccountHolderName) == "" {
		missing = append(missing, "account_holder_name")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}
