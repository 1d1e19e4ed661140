package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokenomics/api/responses"
	"github.com/angelmondragon/tokenomics/api/validators"
	"github.com/angelmondragon/tokenomics/internal/trading"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

const maxDestinationLength = 255

type buyRequest struct {
	FiatAmount decimal.Decimal `json:"fiat_amount" validate:"amount"`
}

type sellRequest struct {
	TokenAmount decimal.Decimal `json:"token_amount" validate:"amount"`
}

type transferRequest struct {
	RecipientID string          `json:"recipient_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" validate:"amount"`
}

type withdrawRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"amount"`
	Destination string          `json:"destination" validate:"required,max=255"`
}

type resolveWithdrawalRequest struct {
	Status string `json:"status" validate:"required,oneof=COMPLETED FAILED"`
}

func BuyTokens(svc trading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req buyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Buy(r.Context(), trading.BuyInput{AccountID: accountID, FiatAmount: req.FiatAmount})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func SellTokens(svc trading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req sellRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Sell(r.Context(), trading.SellInput{AccountID: accountID, TokenAmount: req.TokenAmount})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// TransferBalance sends fiat balance to another account.
func TransferBalance(svc trading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipientID, err := validators.ParseUUIDParam(req.RecipientID, "recipient_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Transfer(r.Context(), trading.TransferInput{
			FromID: accountID,
			ToID:   recipientID,
			Amount: req.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func WithdrawBalance(svc trading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req withdrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Withdraw(r.Context(), trading.WithdrawInput{
			AccountID:   accountID,
			Amount:      req.Amount,
			Destination: validators.SanitizeString(req.Destination, maxDestinationLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, record)
	}
}

func TransferHistory(svc trading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), accountID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminResolveWithdrawal completes or fails a pending withdrawal.
func AdminResolveWithdrawal(svc trading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transferID, err := validators.ParseUUIDParam(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolveWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseTransferStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		record, err := svc.ResolveWithdrawal(r.Context(), transferID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
