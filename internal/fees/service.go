package fees

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UpdateRateInput carries an admin change to one fee kind.
type UpdateRateInput struct {
	Kind    enums.FeeKind
	Rate    decimal.Decimal
	Active  bool
	ActorID uuid.UUID
}

// Service exposes fee settings administration.
type Service interface {
	UpdateFeeRate(ctx context.Context, input UpdateRateInput) (*models.FeeSetting, error)
	ListFeeSettings(ctx context.Context) ([]Resolution, error)
}

// ServiceParams configure the fee settings service.
type ServiceParams struct {
	Repository Repository
	Calculator Calculator
	Cache      SettingsCache
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	calculator Calculator
	cache      SettingsCache
	logg       *logger.Logger
}

// NewService builds the fee settings service. Cache is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("fee settings repository required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       params.Repository,
		calculator: params.Calculator,
		cache:      params.Cache,
		logg:       params.Logger,
	}, nil
}

func (s *service) UpdateFeeRate(ctx context.Context, input UpdateRateInput) (*models.FeeSetting, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid fee kind %q", input.Kind))
	}
	if input.Rate.IsNegative() || input.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be between 0 and 1")
	}
	if !input.Rate.Equal(input.Rate.Round(6)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate supports at most 6 decimal places")
	}

	setting := &models.FeeSetting{
		Kind:   input.Kind,
		Rate:   input.Rate,
		Active: input.Active,
	}
	if input.ActorID != uuid.Nil {
		actor := input.ActorID
		setting.UpdatedBy = &actor
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save fee setting")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, input.Kind); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("fee settings cache invalidate failed: %v", err))
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"fee_kind": string(input.Kind),
		"rate":     input.Rate.String(),
		"active":   input.Active,
	})
	s.logg.Info(logCtx, "fee rate updated")
	return setting, nil
}

// ListFeeSettings returns the effective rate for every kind in a stable order.
func (s *service) ListFeeSettings(ctx context.Context) ([]Resolution, error) {
	kinds := enums.FeeKinds()
	out := make([]Resolution, 0, len(kinds))
	for _, kind := range kinds {
		resolution, err := s.calculator.ResolveRate(ctx, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, resolution)
	}
	return out, nil
}
