package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionPerPackage(t *testing.T) {
	cases := []struct {
		pkg  Package
		paid float64
		want int64
	}{
		{PackageStarter, 30000, 2100},
		{PackageExpansion, 30000, 2400},
		{PackageScale, 30000, 3000},
		{PackageAbsolute, 30000, 3600},
		{PackageStarter, 100, 7},
		{PackageAbsolute, 12345, 1481},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Commission(tc.paid, tc.pkg), "%s / %v", tc.pkg, tc.paid)
	}
}

func TestCommissionRoundsHalfAwayFromZero(t *testing.T) {
	// 7% of 1050 = 73.5, rounds up
	assert.Equal(t, int64(74), Commission(1050, PackageStarter))
}

func TestCommissionUnknownPackage(t *testing.T) {
	assert.Equal(t, int64(0), Commission(30000, Package("Другое")))
}

func TestRateForAndPercent(t *testing.T) {
	info, ok := RateFor(PackageStarter)
	require.True(t, ok)
	assert.Equal(t, 0.07, info.Rate)
	assert.Equal(t, "стартовый набор", info.DisplayName)

	assert.Equal(t, 7, PackageStarter.Percent())
	assert.Equal(t, 8, PackageExpansion.Percent())
	assert.Equal(t, 10, PackageScale.Percent())
	assert.Equal(t, 12, PackageAbsolute.Percent())
}

func TestPackageValid(t *testing.T) {
	for _, p := range AllPackages {
		assert.True(t, p.Valid())
	}
	assert.False(t, Package("").Valid())
	assert.False(t, Package("VIP").Valid())
}

func TestConversationKeyString(t *testing.T) {
	assert.Equal(t, "42_main", ConversationKey{ChatID: 42}.String())
	assert.Equal(t, "42_17", ConversationKey{ChatID: 42, ThreadID: 17}.String())
}
