package enums

import "fmt"

// ClinicSubscriptionStatus is the entitlement cache kept on a clinic.
type ClinicSubscriptionStatus string

const (
	ClinicSubscriptionInactive ClinicSubscriptionStatus = "inactive"
	ClinicSubscriptionActive   ClinicSubscriptionStatus = "active"
	ClinicSubscriptionExpired  ClinicSubscriptionStatus = "expired"
)

var validClinicSubscriptionStatuses = []ClinicSubscriptionStatus{
	ClinicSubscriptionInactive,
	ClinicSubscriptionActive,
	ClinicSubscriptionExpired,
}

// String implements fmt.Stringer.
func (c ClinicSubscriptionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ClinicSubscriptionStatus) IsValid() bool {
	for _, candidate := range validClinicSubscriptionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseClinicSubscriptionStatus converts raw input into a ClinicSubscriptionStatus.
func ParseClinicSubscriptionStatus(value string) (ClinicSubscriptionStatus, error) {
	for _, candidate := range validClinicSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid clinic subscription status %q", value)
}
