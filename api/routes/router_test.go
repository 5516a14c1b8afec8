package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/handova/handova-backend/internal/bankaccounts"
	internalorders "github.com/handova/handova-backend/internal/orders"
	"github.com/handova/handova-backend/internal/payments"
	"github.com/handova/handova-backend/internal/payouts"
	pkgauth "github.com/handova/handova-backend/pkg/auth"
	"github.com/handova/handova-backend/pkg/config"
	"github.com/handova/handova-backend/pkg/db/models"
	"github.com/handova/handova-backend/pkg/enums"
	"github.com/handova/handova-backend/pkg/logger"
	"github.com/handova/handova-backend/pkg/pagination"
)

type stubOrdersService struct{}

func (stubOrdersService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

func (stubOrdersService) AttachPaymentReference(ctx context.Context, buyerID, orderID uuid.UUID, reference string) (*models.Order, error) {
	panic("not implemented")
}

func (stubOrdersService) RecordPaymentConfirmed(ctx context.Context, paymentReference string) (*models.Order, error) {
	panic("not implemented")
}

func (stubOrdersService) VerifyReleaseCode(ctx context.Context, input internalorders.VerifyReleaseInput) (*internalorders.VerifyReleaseResult, error) {
	return &internalorders.VerifyReleaseResult{}, nil
}

func (stubOrdersService) QueueReleasedOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.PayoutQueueEntry, error) {
	return &models.PayoutQueueEntry{}, nil
}

func (stubOrdersService) GetStatus(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderStatusView, error) {
	return &internalorders.OrderStatusView{OrderID: orderID}, nil
}

func (stubOrdersService) GetOrder(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrdersService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

func (stubOrdersService) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) InitializePayment(ctx context.Context, buyerID, orderID uuid.UUID) (*payments.InitializeResult, error) {
	return &payments.InitializeResult{OrderID: orderID}, nil
}

func (stubPaymentsService) ConfirmPayment(ctx context.Context, reference string) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubPaymentsService) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	return nil
}

type stubPayoutsService struct{}

func (stubPayoutsService) RetryFailedPayout(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error) {
	return &models.PayoutQueueEntry{ID: payoutID}, nil
}

func (stubPayoutsService) GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.PayoutQueueEntry, error) {
	return &models.PayoutQueueEntry{ID: payoutID}, nil
}

func (stubPayoutsService) ListSellerPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*payouts.PayoutList, error) {
	return &payouts.PayoutList{}, nil
}

func (stubPayoutsService) ListPendingForDate(ctx context.Context, day time.Time) ([]models.PayoutQueueEntry, error) {
	return nil, nil
}

func (stubPayoutsService) Stats(ctx context.Context) (*payouts.Stats, error) {
	return &payouts.Stats{}, nil
}

type stubSettler struct{}

func (stubSettler) ProcessDuePayouts(ctx context.Context) (*payouts.BatchResult, error) {
	return &payouts.BatchResult{}, nil
}

type stubBankAccountsService struct{}

func (stubBankAccountsService) AddBankAccount(ctx context.Context, userID uuid.UUID, input bankaccounts.AddBankAccountInput) (*models.BankAccount, error) {
	return &models.BankAccount{}, nil
}

func (stubBankAccountsService) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error) {
	return nil, nil
}

func (stubBankAccountsService) SetPrimaryAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.BankAccount, error) {
	return &models.BankAccount{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:       cfg,
		Logger:       logg,
		Orders:       stubOrdersService{},
		Payments:     stubPaymentsService{},
		Payouts:      stubPayoutsService{},
		Settlement:   stubSettler{},
		BankAccounts: stubBankAccountsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "user@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/buying", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/buying", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for authenticated listing got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payouts/stats", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payouts/stats", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestWebhookRouteIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for webhook without token got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}
