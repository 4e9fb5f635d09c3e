package plans

import (
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// UpgradePrice returns what moving from current to target costs:
// max(0, price(target) - price(current)). A nil or unpriced current tier pays
// the full target price. The result is never negative; eligibility is
// checked separately by CanUpgrade.
func (t PriceTable) UpgradePrice(current *enums.PlanTier, target enums.PlanTier) int64 {
	targetPrice, ok := t.Price(target)
	if !ok {
		return 0
	}
	if current == nil {
		return targetPrice
	}
	currentPrice, ok := t.Price(*current)
	if !ok {
		return targetPrice
	}
	if delta := targetPrice - currentPrice; delta > 0 {
		return delta
	}
	return 0
}

// CanUpgrade reports whether target is strictly later in tier order than
// current. Any known tier is reachable from no plan.
func CanUpgrade(current *enums.PlanTier, target enums.PlanTier) bool {
	if target.Rank() < 0 {
		return false
	}
	if current == nil || current.Rank() < 0 {
		return true
	}
	return target.Rank() > current.Rank()
}

// Quote describes one tier as offered to a tenant.
type Quote struct {
	Tier         enums.PlanTier `json:"tier"`
	Price        int64          `json:"price_iqd"`
	DisplayPrice string         `json:"display_price"`
	UpgradePrice int64          `json:"upgrade_price_iqd"`
	Upgradable   bool           `json:"upgradable"`
	Current      bool           `json:"current"`
}

// Quotes lists every tier for kind in upgrade order, priced against current.
func Quotes(kind enums.TenantKind, current *enums.PlanTier) []Quote {
	table := TableFor(kind)
	tiers := enums.PlanTiers()
	out := make([]Quote, 0, len(tiers))
	for _, tier := range tiers {
		price, _ := table.Price(tier)
		q := Quote{
			Tier:         tier,
			Price:        price,
			DisplayPrice: FormatIQD(price),
			Current:      current != nil && *current == tier,
			Upgradable:   CanUpgrade(current, tier),
		}
		if q.Upgradable {
			q.UpgradePrice = table.UpgradePrice(current, tier)
		}
		out = append(out, q)
	}
	return out
}
