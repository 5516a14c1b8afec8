package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/handova/handova-backend/pkg/config"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")

	// ErrOutcomeUnknown marks a transfer whose result could not be
	// observed (timeout, connection drop mid-flight). Callers must not
	// blindly retry; reconcile against the gateway first.
	ErrOutcomeUnknown = errors.New("transfer outcome unknown")
)

// subunitFactor converts major currency units to the gateway's integer
// subunits (kobo/cents).
var subunitFactor = decimal.NewFromInt(100)

// Client wraps the Paystack REST API with centralized auth, logging,
// bounded timeouts, and error mapping.
type Client struct {
	httpClient  *http.Client
	secretKey   string
	baseURL     string
	currency    string
	callbackURL string
	logger      *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "ZAR"
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		secretKey:   secret,
		baseURL:     baseURL,
		currency:    currency,
		callbackURL: cfg.CallbackURL,
		logger:      logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// NewPaymentReference returns a unique charge reference bound to an order.
func NewPaymentReference(orderID uuid.UUID) string {
	return fmt.Sprintf("ORD-%s-%s", orderID, uuid.NewString())
}

// NewTransferReference returns a unique idempotent transfer reference
// bound to a payout entry.
func NewTransferReference(payoutID uuid.UUID) string {
	return fmt.Sprintf("TRF-%s-%s", payoutID, uuid.NewString())
}

// InitializeResult carries the redirect handle for a new charge.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// InitializeTransaction creates a charge for the payer and returns the
// authorization handle the client completes payment with.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal, reference string) (*InitializeResult, error) {
	body := map[string]any{
		"email":     email,
		"amount":    toSubunits(amount),
		"reference": reference,
		"currency":  c.currency,
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{"reference": reference})

	var payload struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &payload); err != nil {
		return nil, err
	}
	if !payload.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack rejected charge initialization")
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{"reference": payload.Data.Reference})
	return &InitializeResult{
		AuthorizationURL: payload.Data.AuthorizationURL,
		AccessCode:       payload.Data.AccessCode,
		Reference:        payload.Data.Reference,
	}, nil
}

// VerifyResult reports the gateway's view of a charge.
type VerifyResult struct {
	Succeeded bool
	Status    string
	Amount    decimal.Decimal
	PaidAt    *time.Time
}

// VerifyTransaction queries the charge status for a reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var payload struct {
		Status bool `json:"status"`
		Data   struct {
			Status string `json:"status"`
			Amount int64  `json:"amount"`
			PaidAt string `json:"paid_at"`
		} `json:"data"`
	}
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	if !payload.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack could not verify charge")
	}

	result := &VerifyResult{
		Succeeded: strings.EqualFold(payload.Data.Status, "success"),
		Status:    payload.Data.Status,
		Amount:    fromSubunits(payload.Data.Amount),
	}
	if payload.Data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, payload.Data.PaidAt); err == nil {
			result.PaidAt = &paidAt
		}
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": reference,
		"status":    result.Status,
	})
	return result, nil
}

// CreateTransferRecipient registers a bank account with the gateway and
// returns the recipient code used for transfers.
func (c *Client) CreateTransferRecipient(ctx context.Context, accountNumber, bankCode, holderName string) (string, error) {
	body := map[string]any{
		"type":           "bank_account",
		"name":           holderName,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       c.currency,
	}

	c.log(ctx, "request", "create_transfer_recipient", map[string]any{"bank_code": bankCode})

	var payload struct {
		Status bool `json:"status"`
		Data   struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", body, &payload); err != nil {
		return "", err
	}
	if !payload.Status || payload.Data.RecipientCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paystack rejected transfer recipient")
	}

	c.log(ctx, "response", "create_transfer_recipient", map[string]any{"recipient_code": payload.Data.RecipientCode})
	return payload.Data.RecipientCode, nil
}

// InitiateTransfer moves funds from the platform balance to a recipient.
// A timeout is surfaced as ErrOutcomeUnknown, never as a plain failure.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reference string) error {
	body := map[string]any{
		"source":    "balance",
		"reason":    "Payment for sold item",
		"amount":    toSubunits(amount),
		"recipient": recipientCode,
		"reference": reference,
	}

	c.log(ctx, "request", "initiate_transfer", map[string]any{
		"recipient": recipientCode,
		"reference": reference,
	})

	var payload struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfer", body, &payload); err != nil {
		if isTimeout(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrOutcomeUnknown, "transfer timed out; reconcile with gateway before retrying")
		}
		return err
	}
	if !payload.Status {
		msg := payload.Message
		if msg == "" {
			msg = "paystack declined the transfer"
		}
		return pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	c.log(ctx, "response", "initiate_transfer", map[string]any{"reference": reference})
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call paystack")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paystack response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack returned status %d", resp.StatusCode)).
			WithDetails(map[string]any{"body": truncate(string(raw), 512)})
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
		}
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{"gateway": "paystack", "phase": phase, "operation": operation}
	for k, v := range fields {
		merged[k] = v
	}
	c.logger.Info(c.logger.WithFields(ctx, merged), "gateway call")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func toSubunits(amount decimal.Decimal) int64 {
	return amount.Mul(subunitFactor).IntPart()
}

func fromSubunits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(subunitFactor)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
