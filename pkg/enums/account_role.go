package enums

import "fmt"

// AccountRole distinguishes operator accounts from regular users.
type AccountRole string

const (
	AccountRoleUser  AccountRole = "user"
	AccountRoleAdmin AccountRole = "admin"
)

var validAccountRoles = []AccountRole{
	AccountRoleUser,
	AccountRoleAdmin,
}

// IsValid reports whether the role is known.
func (r AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAccountRole converts raw input into AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
