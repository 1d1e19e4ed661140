package enums

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationTypeStakeSettled  NotificationType = "stake_settled"
	NotificationTypeReferralBonus NotificationType = "referral_bonus"
	NotificationTypeSystem        NotificationType = "system"
)

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeStakeSettled, NotificationTypeReferralBonus, NotificationTypeSystem:
		return true
	}
	return false
}
