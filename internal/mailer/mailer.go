package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/logger"
)

// Sender delivers one message. Implementations must not block the order
// flow; a lost email is recoverable, a stuck release is not.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// UserDirectory resolves recipient addresses.
type UserDirectory interface {
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// LogSender writes messages to the structured log instead of a mail
// provider. Used in dev and as the default until a provider is wired.
type LogSender struct {
	Logger *logger.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if s.Logger == nil {
		return nil
	}
	ctx = s.Logger.WithFields(ctx, map[string]any{
		"to":      to,
		"subject": subject,
	})
	s.Logger.Info(ctx, "mail queued")
	return nil
}

// Mailer sends the escrow lifecycle emails. Every method is best-effort:
// failures are logged, never returned, so a mail outage cannot block an
// order transition.
type Mailer struct {
	sender Sender
	users  UserDirectory
	logg   *logger.Logger
}

// New builds a mailer.
func New(sender Sender, users UserDirectory, logg *logger.Logger) (*Mailer, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Mailer{sender: sender, users: users, logg: logg}, nil
}

// OrderCreated tells the buyer the order is reserved and awaiting payment.
func (m *Mailer) OrderCreated(ctx context.Context, order *models.Order) {
	buyer, ok := m.lookup(ctx, order.BuyerID)
	if !ok {
		return
	}
	subject := "Your Handova order is waiting for payment"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour order for R%s has been created. Complete payment to place the funds in escrow.",
		buyer.FullName, order.Amount.StringFixed(2),
	)
	m.deliver(ctx, order, buyer.Email, subject, body)
}

// ReleaseCodeIssued hands the buyer the code that releases the funds.
func (m *Mailer) ReleaseCodeIssued(ctx context.Context, order *models.Order) {
	buyer, ok := m.lookup(ctx, order.BuyerID)
	if !ok {
		return
	}
	if order.ReleaseCode == nil {
		m.logg.Warn(m.logg.WithOrderID(ctx, order.ID.String()), "release code email requested without a code")
		return
	}
	subject := "Payment received, here is your release code"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour payment is held in escrow. Give the seller this code only when you have the item in hand: %s",
		buyer.FullName, *order.ReleaseCode,
	)
	m.deliver(ctx, order, buyer.Email, subject, body)
}

// OrderReleased tells the seller the funds are queued for payout.
func (m *Mailer) OrderReleased(ctx context.Context, order *models.Order) {
	seller, ok := m.lookup(ctx, order.SellerID)
	if !ok {
		return
	}
	subject := "Funds released, payout scheduled"
	body := fmt.Sprintf(
		"Hi %s,\n\nThe buyer confirmed the handover. R%s is queued for your next payout date.",
		seller.FullName, order.Amount.StringFixed(2),
	)
	m.deliver(ctx, order, seller.Email, subject, body)
}

func (m *Mailer) lookup(ctx context.Context, userID uuid.UUID) (*models.User, bool) {
	user, err := m.users.FindUser(ctx, userID)
	if err != nil {
		m.logg.Error(m.logg.WithUserID(ctx, userID.String()), "failed to resolve mail recipient", err)
		return nil, false
	}
	return user, true
}

func (m *Mailer) deliver(ctx context.Context, order *models.Order, to, subject, body string) {
	ctx = m.logg.WithOrderID(ctx, order.ID.String())
	if err := m.sender.Send(ctx, to, subject, body); err != nil {
		m.logg.Error(ctx, "failed to send mail", err)
	}
}
