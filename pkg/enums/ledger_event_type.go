package enums

import "fmt"

// LedgerEventType classifies transaction-history entries.
type LedgerEventType string

const (
	LedgerEventTypeStakeOpened     LedgerEventType = "stake_opened"
	LedgerEventTypeStakePayout     LedgerEventType = "stake_payout"
	LedgerEventTypeReferralBonus   LedgerEventType = "referral_bonus"
	LedgerEventTypeFeeCredit       LedgerEventType = "fee_credit"
	LedgerEventTypeReserveTransfer LedgerEventType = "reserve_transfer"
	LedgerEventTypeTrade           LedgerEventType = "trade"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeStakeOpened,
	LedgerEventTypeStakePayout,
	LedgerEventTypeReferralBonus,
	LedgerEventTypeFeeCredit,
	LedgerEventTypeReserveTransfer,
	LedgerEventTypeTrade,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
