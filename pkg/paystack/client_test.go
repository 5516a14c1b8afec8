package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/handova/handova-backend/pkg/config"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logg := logger.New(logger.Options{ServiceName: "test"})
	client, err := NewClient(context.Background(), config.PaystackConfig{
		SecretKey: "sk_test_abc",
		BaseURL:   server.URL,
		Currency:  "ZAR",
		Timeout:   2 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func TestNewClientRequiresSecret(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	if _, err := NewClient(context.Background(), config.PaystackConfig{}, logg); err == nil {
		t.Fatal("expected error without secret key")
	}
}

func TestInitializeTransaction(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "ACC_1",
				"reference":         gotBody["reference"],
			},
		})
	}))

	ref := NewPaymentReference(uuid.New())
	result, err := client.InitializeTransaction(context.Background(), "buyer@example.com", decimal.RequireFromString("250.00"), ref)
	if err != nil {
		t.Fatalf("InitializeTransaction: %v", err)
	}
	if gotAuth != "Bearer sk_test_abc" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["amount"] != float64(25000) {
		t.Fatalf("expected amount in subunits, got %v", gotBody["amount"])
	}
	if result.AccessCode != "ACC_1" || result.Reference != ref {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestVerifyTransactionSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"status":  "success",
				"amount":  25000,
				"paid_at": "2025-01-15T10:30:00Z",
			},
		})
	}))

	result, err := client.VerifyTransaction(context.Background(), "ORD-x")
	if err != nil {
		t.Fatalf("VerifyTransaction: %v", err)
	}
	if !result.Succeeded {
		t.Fatal("expected succeeded charge")
	}
	if !result.Amount.Equal(decimal.RequireFromString("250")) {
		t.Fatalf("unexpected amount %s", result.Amount)
	}
	if result.PaidAt == nil {
		t.Fatal("expected paid_at to be parsed")
	}
}

func TestVerifyTransactionFailedCharge(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"status": "abandoned", "amount": 25000},
		})
	}))

	result, err := client.VerifyTransaction(context.Background(), "ORD-x")
	if err != nil {
		t.Fatalf("VerifyTransaction: %v", err)
	}
	if result.Succeeded {
		t.Fatal("abandoned charge must not be treated as success")
	}
}

func TestCreateTransferRecipient(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transferrecipient" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"recipient_code": "RCP_1"},
		})
	}))

	code, err := client.CreateTransferRecipient(context.Background(), "1234567890", "632005", "T Mokoena")
	if err != nil {
		t.Fatalf("CreateTransferRecipient: %v", err)
	}
	if code != "RCP_1" {
		t.Fatalf("unexpected recipient code %q", code)
	}
}

func TestInitiateTransferDeclined(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "insufficient balance"})
	}))

	err := client.InitiateTransfer(context.Background(), "RCP_1", decimal.RequireFromString("250.00"), "TRF-x")
	if err == nil {
		t.Fatal("expected declined transfer to error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestInitiateTransferServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.InitiateTransfer(context.Background(), "RCP_1", decimal.RequireFromString("10.00"), "TRF-x")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSubunitConversion(t *testing.T) {
	if got := toSubunits(decimal.RequireFromString("250.00")); got != 25000 {
		t.Fatalf("expected 25000, got %d", got)
	}
	if got := fromSubunits(25000); !got.Equal(decimal.RequireFromString("250")) {
		t.Fatalf("expected 250, got %s", got)
	}
}
