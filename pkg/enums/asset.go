package enums

// Asset names a wallet balance column.
type Asset string

const (
	AssetBalance Asset = "balance"
	AssetToken   Asset = "token_balance"
)

// IsValid reports whether the asset is a known wallet balance.
func (a Asset) IsValid() bool {
	return a == AssetBalance || a == AssetToken
}
