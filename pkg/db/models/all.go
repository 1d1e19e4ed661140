package models

// All lists every persisted model, in dependency order, for schema bootstrap.
func All() []any {
	return []any{
		&Account{},
		&Wallet{},
		&SupplyLedger{},
		&AdminSupplyTransfer{},
		&FeeSetting{},
		&Stake{},
		&ReferralEarning{},
		&TransferRecord{},
		&LedgerEvent{},
		&Notification{},
	}
}
