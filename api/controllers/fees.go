package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokenomics/api/responses"
	"github.com/angelmondragon/tokenomics/api/validators"
	"github.com/angelmondragon/tokenomics/internal/fees"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

type updateFeeRequest struct {
	Rate   decimal.Decimal `json:"rate" validate:"rate"`
	Active *bool           `json:"active" validate:"required"`
}

func AdminListFees(svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := svc.ListFeeSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"fees": settings})
	}
}

// AdminUpdateFee replaces the rate for the fee kind named in the path.
func AdminUpdateFee(svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseFeeKind(chi.URLParam(r, "kind"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fee kind"))
			return
		}

		var req updateFeeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setting, err := svc.UpdateFeeRate(r.Context(), fees.UpdateRateInput{
			Kind:    kind,
			Rate:    req.Rate,
			Active:  *req.Active,
			ActorID: actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setting)
	}
}
