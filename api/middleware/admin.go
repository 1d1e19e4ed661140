package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tokenomics/api/responses"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

// AdminChecker confirms admin privileges against the account store.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
}

// RequireAdmin rejects callers whose account is not an admin. The token role
// claim is ignored so a demoted admin loses access immediately.
func RequireAdmin(checker AdminChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := uuid.Parse(AccountIDFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
				return
			}
			ok, err := checker.IsAdmin(r.Context(), accountID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin privileges required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
