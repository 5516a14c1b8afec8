package bankaccounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/handova/handova-backend/pkg/db/models"
)

// Repository persists payout destinations and the per-user primary
// recipient snapshot.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAccount(ctx context.Context, account *models.BankAccount) (*models.BankAccount, error)
	FindAccount(ctx context.Context, accountID uuid.UUID) (*models.BankAccount, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error)
	CountAccounts(ctx context.Context, userID uuid.UUID) (int64, error)

	ClearPrimary(ctx context.Context, userID uuid.UUID) error
	SetPrimary(ctx context.Context, accountID uuid.UUID) error

	// UpdateUserRecipient copies the primary account's recipient code onto
	// the user row; release-time payout queuing reads it from there.
	UpdateUserRecipient(ctx context.Context, userID uuid.UUID, recipientCode string) error
}

// RecipientGateway registers a bank account with the payment gateway.
type RecipientGateway interface {
	CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, holderName string) (string, error)
}
