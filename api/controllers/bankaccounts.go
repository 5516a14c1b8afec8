package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/handova/handova-backend/api/middleware"
	"github.com/handova/handova-backend/api/responses"
	"github.com/handova/handova-backend/api/validators"
	"github.com/handova/handova-backend/internal/bankaccounts"
	pkgerrors "github.com/handova/handova-backend/pkg/errors"
	"github.com/handova/handova-backend/pkg/logger"
)

type addBankAccountRequest struct {
	AccountNumber     string `json:"account_number" validate:"required,min=6,max=20,numeric"`
	BankName          string `json:"bank_name" validate:"required,max=100"`
	BankCode          string `json:"bank_code" validate:"required,max=10"`
	AccountHolderName string `json:"account_holder_name" validate:"required,max=150"`
	MakePrimary       bool   `json:"make_primary"`
}

// AddBankAccount registers a payout destination for the caller.
func AddBankAccount(svc bankaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addBankAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.AddBankAccount(r.Context(), middleware.UserIDFromContext(r.Context()), bankaccounts.AddBankAccountInput{
			AccountNumber:     req.AccountNumber,
			BankName:          req.BankName,
			BankCode:          req.BankCode,
			AccountHolderName: req.AccountHolderName,
			MakePrimary:       req.MakePrimary,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// ListBankAccounts returns the caller's payout destinations.
func ListBankAccounts(svc bankaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := svc.ListBankAccounts(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accounts)
	}
}

// SetPrimaryBankAccount promotes one of the caller's accounts.
func SetPrimaryBankAccount(svc bankaccounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "accountId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "account id is required"))
			return
		}
		accountID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		account, err := svc.SetPrimaryAccount(r.Context(), middleware.UserIDFromContext(r.Context()), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}
