package pricing

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	priceScale  = 12
	factorScale = 6
	usageScale  = 4
)

var hundred = decimal.NewFromInt(100)

// Price is a snapshot of the token price derived from the circulating pool.
type Price struct {
	Price                decimal.Decimal `json:"price"`
	InflationFactor      decimal.Decimal `json:"inflation_factor"`
	UsagePercentage      decimal.Decimal `json:"usage_percentage"`
	CirculatingRemaining decimal.Decimal `json:"circulating_remaining"`
	// Clamped is set when the factor hit the configured ceiling.
	Clamped   bool `json:"clamped"`
	LowSupply bool `json:"low_supply"`
}

type supplyReader interface {
	Get(ctx context.Context) (*models.SupplyLedger, error)
}

// Oracle prices tokens from the live remaining counter.
type Oracle interface {
	CurrentPrice(ctx context.Context) (Price, error)
	Quote(remaining decimal.Decimal) Price
}

// OracleParams configure the price oracle.
type OracleParams struct {
	Supply     supplyReader
	Tokenomics config.TokenomicsConfig
	Logger     *logger.Logger
}

type oracle struct {
	supply       supplyReader
	basePrice    decimal.Decimal
	allocation   decimal.Decimal
	maxFactor    decimal.Decimal
	alertPercent decimal.Decimal
	logg         *logger.Logger
}

// NewOracle builds the price oracle.
func NewOracle(params OracleParams) (Oracle, error) {
	if params.Supply == nil {
		return nil, fmt.Errorf("supply reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Tokenomics
	if !cfg.BasePrice.IsPositive() {
		return nil, fmt.Errorf("base price must be positive")
	}
	if !cfg.TotalUserAllocation.IsPositive() {
		return nil, fmt.Errorf("total user allocation must be positive")
	}
	if cfg.MaxInflationFactor.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("max inflation factor must be at least 1")
	}
	return &oracle{
		supply:       params.Supply,
		basePrice:    cfg.BasePrice,
		allocation:   cfg.TotalUserAllocation,
		maxFactor:    cfg.MaxInflationFactor,
		alertPercent: cfg.LowSupplyAlertPercent,
		logg:         params.Logger,
	}, nil
}

func (o *oracle) CurrentPrice(ctx context.Context) (Price, error) {
	ledger, err := o.supply.Get(ctx)
	if err != nil {
		return Price{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supply ledger")
	}
	if ledger == nil {
		return Price{}, pkgerrors.New(pkgerrors.CodeNotFound, "supply ledger not initialized")
	}
	price := o.Quote(ledger.UserCirculatingRemaining)
	if price.LowSupply {
		logCtx := o.logg.WithFields(ctx, map[string]any{
			"circulating_remaining": price.CirculatingRemaining.String(),
			"usage_percentage":      price.UsagePercentage.String(),
			"clamped":               price.Clamped,
		})
		o.logg.Warn(logCtx, "low circulating supply")
	}
	return price, nil
}

// Quote never divides by zero: an empty or negative pool prices at the ceiling factor.
func (o *oracle) Quote(remaining decimal.Decimal) Price {
	factor := o.maxFactor
	clamped := true
	if remaining.IsPositive() {
		factor = o.allocation.Div(remaining)
		clamped = factor.GreaterThan(o.maxFactor)
		if clamped {
			factor = o.maxFactor
		}
	}
	factor = factor.Round(factorScale)

	usage := decimal.NewFromInt(1).Sub(remaining.Div(o.allocation)).Mul(hundred).Round(usageScale)

	lowSupply := clamped
	if o.alertPercent.IsPositive() && usage.GreaterThanOrEqual(o.alertPercent) {
		lowSupply = true
	}

	return Price{
		Price:                o.basePrice.Mul(factor).Round(priceScale),
		InflationFactor:      factor,
		UsagePercentage:      usage,
		CirculatingRemaining: remaining,
		Clamped:              clamped,
		LowSupply:            lowSupply,
	}
}
