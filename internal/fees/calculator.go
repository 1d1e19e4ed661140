package fees

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/types"
	"github.com/shopspring/decimal"
)

// Resolution is the effective rate for one fee kind and where it came from.
type Resolution struct {
	Kind enums.FeeKind   `json:"kind"`
	Rate decimal.Decimal `json:"rate"`
	Tier RateTier        `json:"tier"`
}

// Quote is the outcome of applying a fee to a gross amount.
type Quote struct {
	Resolution
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Net    decimal.Decimal `json:"net"`
}

// Calculator derives fees from admin-editable rates.
type Calculator interface {
	Calculate(ctx context.Context, amount decimal.Decimal, kind enums.FeeKind) (Quote, error)
	ResolveRate(ctx context.Context, kind enums.FeeKind) (Resolution, error)
}

// CalculatorParams configure the fee calculator.
type CalculatorParams struct {
	Repository Repository
	Cache      SettingsCache
	Logger     *logger.Logger
}

type calculator struct {
	repo  Repository
	cache SettingsCache
	logg  *logger.Logger
}

// NewCalculator builds a calculator. Cache is optional.
func NewCalculator(params CalculatorParams) (Calculator, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("fee settings repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &calculator{repo: params.Repository, cache: params.Cache, logg: params.Logger}, nil
}

// Calculate returns fee = amount * rate and net = amount - fee at six fractional digits.
// Negative amounts are rejected.
func (c *calculator) Calculate(ctx context.Context, amount decimal.Decimal, kind enums.FeeKind) (Quote, error) {
	if amount.IsNegative() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	resolution, err := c.ResolveRate(ctx, kind)
	if err != nil {
		return Quote{}, err
	}
	amount = types.RoundAmount(amount)
	fee := types.RoundAmount(amount.Mul(resolution.Rate))
	return Quote{
		Resolution: resolution,
		Amount:     amount,
		Fee:        fee,
		Net:        amount.Sub(fee),
	}, nil
}

// ResolveRate never fails on storage errors; it falls back to the default tier instead.
func (c *calculator) ResolveRate(ctx context.Context, kind enums.FeeKind) (Resolution, error) {
	if !kind.IsValid() {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid fee kind %q", kind))
	}
	setting, err := c.lookup(ctx, kind)
	if err != nil {
		logCtx := c.logg.WithField(ctx, "fee_kind", string(kind))
		c.logg.Warn(logCtx, fmt.Sprintf("fee setting lookup failed, using default rate: %v", err))
		return Resolution{Kind: kind, Rate: DefaultRate(kind), Tier: TierDefault}, nil
	}
	return resolve(kind, setting), nil
}

func resolve(kind enums.FeeKind, setting *models.FeeSetting) Resolution {
	switch {
	case setting == nil:
		return Resolution{Kind: kind, Rate: DefaultRate(kind), Tier: TierDefault}
	case !setting.Active:
		return Resolution{Kind: kind, Rate: decimal.Zero, Tier: TierInactive}
	default:
		return Resolution{Kind: kind, Rate: setting.Rate, Tier: TierConfigured}
	}
}

func (c *calculator) lookup(ctx context.Context, kind enums.FeeKind) (*models.FeeSetting, error) {
	if c.cache != nil {
		setting, hit, err := c.cache.Get(ctx, kind)
		if err == nil && hit {
			return setting, nil
		}
		if err != nil {
			c.logg.Warn(ctx, fmt.Sprintf("fee settings cache read failed: %v", err))
		}
	}

	setting, err := c.repo.Get(ctx, kind)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, kind, setting); err != nil {
			c.logg.Warn(ctx, fmt.Sprintf("fee settings cache write failed: %v", err))
		}
	}
	return setting, nil
}
