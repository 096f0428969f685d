package household

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
)

func testBehaviour(t *testing.T, seed int64, percentile float64) *Behaviour {
	t.Helper()
	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())
	return newBehaviour(&cfg, entropy.NewSource(seed), percentile)
}

func TestLowPercentileNeverDrawsInvestor(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		b := testBehaviour(t, seed, 0.3)
		assert.False(t, b.IsPropertyInvestor())
		assert.Equal(t, 0, b.DesiredBTLProperties())
	}
}

func TestInvestorShareAboveGate(t *testing.T) {
	investors := 0
	for seed := int64(0); seed < 1000; seed++ {
		if testBehaviour(t, seed, 0.9).IsPropertyInvestor() {
			investors++
		}
	}
	// P_INVESTOR/(1-gate) = 0.16 conditional probability.
	assert.Greater(t, investors, 100)
	assert.Less(t, investors, 230)
}

func TestInitialSalePriceFlooredAtPrincipal(t *testing.T) {
	b := testBehaviour(t, 1, 0.4)
	price := b.InitialSalePrice(100000, 30, 5e8)
	assert.Equal(t, 5e8, price)
}

func TestReducedSalePriceNeverBelowPrincipal(t *testing.T) {
	b := testBehaviour(t, 1, 0.4)
	for i := 0; i < 200; i++ {
		p := b.ReducedSalePrice(100000, 98000)
		assert.GreaterOrEqual(t, p, 98000.0)
		assert.LessOrEqual(t, p, 100000.0)
	}
}

func TestDesiredDownPaymentStaysWithinBalance(t *testing.T) {
	b := testBehaviour(t, 1, 0.4)
	for i := 0; i < 200; i++ {
		d := b.DesiredDownPayment(50000)
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, 50000.0)
	}
}

func TestDecideToBuyInvestmentPropertyGates(t *testing.T) {
	b := testBehaviour(t, 3, 0.95)
	if !b.IsPropertyInvestor() {
		t.Skip("seed did not draw an investor")
	}
	assert.False(t, b.DecideToBuyInvestmentProperty(b.DesiredBTLProperties(), 1e9, 1000, 0.5, 0.03),
		"a full portfolio never grows")
	assert.False(t, b.DecideToBuyInvestmentProperty(0, 10, 1e6, 0.5, 0.03),
		"too little cash never invests")
}

func TestIncomeCurve(t *testing.T) {
	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())

	mid := annualGrossEmploymentIncome(&cfg.Household, cfg.Household.IncomePeakAge, 0.5)
	young := annualGrossEmploymentIncome(&cfg.Household, 25, 0.5)
	assert.Greater(t, mid, young, "income peaks in middle age")

	rich := annualGrossEmploymentIncome(&cfg.Household, 40, 0.9)
	poor := annualGrossEmploymentIncome(&cfg.Household, 40, 0.1)
	assert.Greater(t, rich, poor)
}

func TestNormInvIsSymmetricQuantile(t *testing.T) {
	assert.InDelta(t, 0, normInv(0.5), 1e-9)
	assert.InDelta(t, -normInv(0.1), normInv(0.9), 1e-6)
	assert.InDelta(t, 1.2816, normInv(0.9), 1e-3)
}
