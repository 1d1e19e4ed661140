package enums

import "fmt"

// TransferStatus tracks a fee-bearing operation record.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusFailed    TransferStatus = "FAILED"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusCompleted,
	TransferStatusFailed,
}

// IsValid reports whether the value matches a known transfer status.
func (s TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransferStatus converts raw input into TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
