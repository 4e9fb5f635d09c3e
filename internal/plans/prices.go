// Package plans holds the static tier price tables and the upgrade pricing
// rules derived from them.
package plans

import (
	"fmt"
	"strconv"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// PriceTable maps each tier to its monthly price in IQD.
type PriceTable map[enums.PlanTier]int64

var (
	clinicPrices = PriceTable{
		enums.PlanTierBasic:      10000,
		enums.PlanTierPremium:    25000,
		enums.PlanTierEnterprise: 50000,
	}
	supplierPrices = PriceTable{
		enums.PlanTierBasic:      15000,
		enums.PlanTierPremium:    30000,
		enums.PlanTierEnterprise: 60000,
	}
)

// TableFor returns the price table for the tenant class. Clinics and
// suppliers are priced independently.
func TableFor(kind enums.TenantKind) PriceTable {
	if kind == enums.TenantKindSupplier {
		return supplierPrices
	}
	return clinicPrices
}

// Price returns the price of tier and whether the tier is priced.
func (t PriceTable) Price(tier enums.PlanTier) (int64, bool) {
	p, ok := t[tier]
	return p, ok
}

// FormatIQD renders an amount the way prices are displayed to payers,
// e.g. "25,000 IQD".
func FormatIQD(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return fmt.Sprintf("%s%s IQD", sign, out)
}
