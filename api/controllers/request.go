package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tokenomics/api/middleware"
	"github.com/angelmondragon/tokenomics/api/validators"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/pagination"
)

func accountIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.AccountIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account context")
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
