package fees

import (
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/shopspring/decimal"
)

// RateTier names which resolution step produced a rate.
type RateTier string

const (
	// TierConfigured means an active admin setting supplied the rate.
	TierConfigured RateTier = "configured"
	// TierInactive means a setting exists but is switched off, so no fee is charged.
	TierInactive RateTier = "inactive"
	// TierDefault means no usable setting was found and the built-in rate applies.
	TierDefault RateTier = "default"
)

var defaultRates = map[enums.FeeKind]decimal.Decimal{
	enums.FeeKindTransfer: decimal.RequireFromString("0.05"),
	enums.FeeKindWithdraw: decimal.RequireFromString("0.10"),
	enums.FeeKindBuy:      decimal.RequireFromString("0.01"),
	enums.FeeKindSell:     decimal.RequireFromString("0.01"),
}

// DefaultRate returns the built-in rate for kind.
func DefaultRate(kind enums.FeeKind) decimal.Decimal {
	return defaultRates[kind]
}
