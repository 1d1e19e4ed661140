package enums

import (
	"fmt"
	"strings"
)

// FeeKind identifies the money-moving operation a fee rate applies to.
type FeeKind string

const (
	FeeKindTransfer FeeKind = "transfer"
	FeeKindWithdraw FeeKind = "withdraw"
	FeeKindBuy      FeeKind = "buy"
	FeeKindSell     FeeKind = "sell"
)

var validFeeKinds = []FeeKind{
	FeeKindTransfer,
	FeeKindWithdraw,
	FeeKindBuy,
	FeeKindSell,
}

// FeeKinds returns every supported fee kind in a stable order.
func FeeKinds() []FeeKind {
	kinds := make([]FeeKind, len(validFeeKinds))
	copy(kinds, validFeeKinds)
	return kinds
}

// IsValid reports whether the value matches a supported fee kind.
func (k FeeKind) IsValid() bool {
	for _, candidate := range validFeeKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseFeeKind converts raw input into FeeKind.
func ParseFeeKind(value string) (FeeKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validFeeKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fee kind %q", value)
}
