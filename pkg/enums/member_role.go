package enums

import "fmt"

// MemberRole is a functional role inside a clinic or supplier.
type MemberRole string

const (
	MemberRoleDentist      MemberRole = "dentist"
	MemberRoleAssistant    MemberRole = "assistant"
	MemberRoleReceptionist MemberRole = "receptionist"
	MemberRoleAccountant   MemberRole = "accountant"
	MemberRoleSupplier     MemberRole = "supplier"
)

var validMemberRoles = []MemberRole{
	MemberRoleDentist,
	MemberRoleAssistant,
	MemberRoleReceptionist,
	MemberRoleAccountant,
	MemberRoleSupplier,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}

// OwnerRoleFor returns the role assigned to the user who bootstraps a tenant.
func OwnerRoleFor(kind TenantKind) MemberRole {
	if kind == TenantKindSupplier {
		return MemberRoleSupplier
	}
	return MemberRoleDentist
}
