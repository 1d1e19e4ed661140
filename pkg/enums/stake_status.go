package enums

import "fmt"

// StakeStatus tracks the lifecycle of a fixed-term stake.
type StakeStatus string

const (
	StakeStatusActive    StakeStatus = "ACTIVE"
	StakeStatusCompleted StakeStatus = "COMPLETED"
)

var validStakeStatuses = []StakeStatus{
	StakeStatusActive,
	StakeStatusCompleted,
}

// IsValid reports whether the value matches a known stake status.
func (s StakeStatus) IsValid() bool {
	for _, candidate := range validStakeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the stake can no longer change.
func (s StakeStatus) IsTerminal() bool {
	return s == StakeStatusCompleted
}

// ParseStakeStatus converts raw input into StakeStatus.
func ParseStakeStatus(value string) (StakeStatus, error) {
	for _, candidate := range validStakeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stake status %q", value)
}
