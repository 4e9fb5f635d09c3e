package enums

import "fmt"

// TenantKind distinguishes clinic tenancy from supplier tenancy.
type TenantKind string

const (
	TenantKindClinic   TenantKind = "clinic"
	TenantKindSupplier TenantKind = "supplier"
)

var validTenantKinds = []TenantKind{
	TenantKindClinic,
	TenantKindSupplier,
}

// String implements fmt.Stringer.
func (t TenantKind) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t TenantKind) IsValid() bool {
	for _, candidate := range validTenantKinds {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTenantKind converts raw input into a TenantKind.
func ParseTenantKind(value string) (TenantKind, error) {
	for _, candidate := range validTenantKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tenant kind %q", value)
}
