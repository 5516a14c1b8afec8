package controllers

import (
	"io"
	"net/http"

	"github.com/handova/handova-backend/api/middleware"
	"github.com/handova/handova-backend/api/responses"
	"github.com/handova/handova-backend/api/validators"
	"github.com/handova/handova-backend/internal/payments"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
)

// maxWebhookBody bounds the webhook payload read.
const maxWebhookBody = 1 << 20

// InitializePayment creates a gateway charge for a pending order.
func InitializePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.InitializePayment(r.Context(), middleware.UserIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type confirmPaymentRequest struct {
	Reference string `json:"reference" validate:"required,max=128"`
}

// ConfirmPayment verifies a charge and moves the order into escrow. Used
// by the client-side callback; the webhook is the authoritative path.
func ConfirmPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), req.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// PaystackWebhook ingests gateway notifications. Unauthenticated route;
// the HMAC signature is the only gate.
func PaystackWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		signature := r.Header.Get(payments.SignatureHeader)
		if err := svc.HandleWebhook(r.Context(), signature, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
