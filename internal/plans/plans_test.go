package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

func tier(t enums.PlanTier) *enums.PlanTier { return &t }

func TestUpgradePriceNeverNegative(t *testing.T) {
	for _, kind := range []enums.TenantKind{enums.TenantKindClinic, enums.TenantKindSupplier} {
		table := TableFor(kind)
		for _, current := range enums.PlanTiers() {
			for _, target := range enums.PlanTiers() {
				got := table.UpgradePrice(tier(current), target)
				assert.GreaterOrEqualf(t, got, int64(0), "%s %s->%s", kind, current, target)
			}
		}
		for _, target := range enums.PlanTiers() {
			full, _ := table.Price(target)
			assert.Equal(t, full, table.UpgradePrice(nil, target))
		}
	}
}

func TestUpgradePriceDeltas(t *testing.T) {
	clinic := TableFor(enums.TenantKindClinic)
	require.Equal(t, int64(15000), clinic.UpgradePrice(tier(enums.PlanTierBasic), enums.PlanTierPremium))
	require.Equal(t, int64(40000), clinic.UpgradePrice(tier(enums.PlanTierBasic), enums.PlanTierEnterprise))
	require.Equal(t, int64(0), clinic.UpgradePrice(tier(enums.PlanTierEnterprise), enums.PlanTierBasic))
	require.Equal(t, int64(0), clinic.UpgradePrice(tier(enums.PlanTierPremium), enums.PlanTierPremium))

	supplier := TableFor(enums.TenantKindSupplier)
	require.Equal(t, int64(30000), supplier.UpgradePrice(tier(enums.PlanTierPremium), enums.PlanTierEnterprise))
}

func TestUpgradePriceUnknownTiers(t *testing.T) {
	clinic := TableFor(enums.TenantKindClinic)
	require.Equal(t, int64(25000), clinic.UpgradePrice(tier("legacy"), enums.PlanTierPremium))
	require.Equal(t, int64(0), clinic.UpgradePrice(nil, "legacy"))
}

func TestCanUpgrade(t *testing.T) {
	require.True(t, CanUpgrade(nil, enums.PlanTierBasic))
	require.True(t, CanUpgrade(tier(enums.PlanTierBasic), enums.PlanTierPremium))
	require.False(t, CanUpgrade(tier(enums.PlanTierPremium), enums.PlanTierPremium))
	require.False(t, CanUpgrade(tier(enums.PlanTierEnterprise), enums.PlanTierPremium))
	require.False(t, CanUpgrade(nil, "legacy"))
}

func TestQuotes(t *testing.T) {
	quotes := Quotes(enums.TenantKindClinic, tier(enums.PlanTierPremium))
	require.Len(t, quotes, 3)

	require.Equal(t, enums.PlanTierBasic, quotes[0].Tier)
	require.False(t, quotes[0].Upgradable)
	require.Zero(t, quotes[0].UpgradePrice)

	require.True(t, quotes[1].Current)
	require.False(t, quotes[1].Upgradable)

	require.True(t, quotes[2].Upgradable)
	require.Equal(t, int64(25000), quotes[2].UpgradePrice)
	require.Equal(t, "50,000 IQD", quotes[2].DisplayPrice)
}

func TestFormatIQD(t *testing.T) {
	require.Equal(t, "0 IQD", FormatIQD(0))
	require.Equal(t, "999 IQD", FormatIQD(999))
	require.Equal(t, "10,000 IQD", FormatIQD(10000))
	require.Equal(t, "1,250,000 IQD", FormatIQD(1250000))
	require.Equal(t, "-15,000 IQD", FormatIQD(-15000))
}
