package enums

import "fmt"

// SystemRole is a platform-wide role that bypasses tenant scoping.
type SystemRole string

const (
	SystemRoleSuperAdmin SystemRole = "super_admin"
	SystemRoleUser       SystemRole = "user"
)

var validSystemRoles = []SystemRole{
	SystemRoleSuperAdmin,
	SystemRoleUser,
}

// String implements fmt.Stringer.
func (s SystemRole) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SystemRole) IsValid() bool {
	for _, candidate := range validSystemRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSystemRole converts raw input into a SystemRole.
func ParseSystemRole(value string) (SystemRole, error) {
	for _, candidate := range validSystemRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system role %q", value)
}
