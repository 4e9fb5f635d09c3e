package enums

import "fmt"

// PlanTier is a subscription tier, ordered by increasing price.
type PlanTier string

const (
	PlanTierBasic      PlanTier = "basic"
	PlanTierPremium    PlanTier = "premium"
	PlanTierEnterprise PlanTier = "enterprise"
)

var validPlanTiers = []PlanTier{
	PlanTierBasic,
	PlanTierPremium,
	PlanTierEnterprise,
}

// String implements fmt.Stringer.
func (p PlanTier) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PlanTier) IsValid() bool {
	for _, candidate := range validPlanTiers {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlanTier converts raw input into a PlanTier.
func ParsePlanTier(value string) (PlanTier, error) {
	for _, candidate := range validPlanTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan tier %q", value)
}

// Rank returns the position of the tier in upgrade order, or -1 when unknown.
func (p PlanTier) Rank() int {
	for i, candidate := range validPlanTiers {
		if candidate == p {
			return i
		}
	}
	return -1
}

// PlanTiers returns the tiers in upgrade order.
func PlanTiers() []PlanTier {
	out := make([]PlanTier, len(validPlanTiers))
	copy(out, validPlanTiers)
	return out
}
