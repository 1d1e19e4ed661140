package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokenomics/api/responses"
	"github.com/angelmondragon/tokenomics/api/validators"
	"github.com/angelmondragon/tokenomics/internal/supply"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

type reserveTransferRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"amount"`
	Reason string          `json:"reason" validate:"max=500"`
}

// SupplyStatus reports the partition balances and the current quote.
func SupplyStatus(svc supply.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// AdminReserveTransfer moves tokens from the admin reserve into circulation.
func AdminReserveTransfer(svc supply.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reserveTransferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.TransferReserveToCirculating(r.Context(), supply.TransferInput{
			AdminID: adminID,
			Amount:  req.Amount,
			Reason:  validators.SanitizeString(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transfer)
	}
}

func AdminReserveTransferHistory(svc supply.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.TransferHistory(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
