package household

import (
	"math"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
)

// Behaviour is the stochastic policy module behind a household's pricing
// and portfolio decisions. It is stateless across steps apart from draws
// fixed at construction: whether the household is a buy-to-let investor,
// its target portfolio size, and its desired-bank-balance shock. No market
// or agent state is mutated here.
type Behaviour struct {
	cfg *config.HouseholdConfig
	drv *config.DerivedParams
	rng *entropy.Source

	btlInvestor          bool
	desiredBTLProperties int
	desiredBalanceShock  float64
}

func newBehaviour(cfg *config.Config, rng *entropy.Source, incomePercentile float64) *Behaviour {
	b := &Behaviour{
		cfg:                 &cfg.Household,
		drv:                 &cfg.Derived,
		rng:                 rng,
		desiredBalanceShock: rng.Gaussian(),
	}
	// The investor draw is conditioned on the income percentile gate so the
	// unconditional investor share stays at PInvestor.
	if incomePercentile > b.cfg.MinInvestorPercentile &&
		rng.Bernoulli(b.cfg.PInvestor/(1.0-b.cfg.MinInvestorPercentile)) {
		b.btlInvestor = true
		b.desiredBTLProperties = rng.IntBetween(1, b.cfg.MaxBTLProperties)
	}
	return b
}

// IsPropertyInvestor reports the one-time buy-to-let draw.
func (b *Behaviour) IsPropertyInvestor() bool { return b.btlInvestor }

// DesiredBTLProperties returns the investor's target portfolio size, zero
// for non-investors.
func (b *Behaviour) DesiredBTLProperties() int { return b.desiredBTLProperties }

// DesiredBankBalance is the log-linear-in-income cash buffer the household
// aims to hold.
func (b *Behaviour) DesiredBankBalance(annualGrossIncome float64) float64 {
	if annualGrossIncome <= 0 {
		return 0
	}
	return math.Exp(b.cfg.DesiredBankBalanceAlpha*math.Log(annualGrossIncome) +
		b.cfg.DesiredBankBalanceBeta +
		b.cfg.DesiredBankBalanceEpsilon*b.desiredBalanceShock)
}

// DesiredConsumption is essential consumption plus a fraction of the bank
// balance above the desired buffer.
func (b *Behaviour) DesiredConsumption(bankBalance, desiredBankBalance float64) float64 {
	essential := b.cfg.EssentialConsumptionFraction * b.cfg.IncomeSupport
	return essential + b.cfg.ConsumptionFraction*math.Max(0, bankBalance-desiredBankBalance)
}

// DesiredPurchasePrice scales annual income by the buy multiple, a
// log-normal noise term, and the expected house price appreciation.
func (b *Behaviour) DesiredPurchasePrice(annualGrossIncome, hpa float64) float64 {
	denom := 1.0 - b.cfg.BuyWeightHPA*hpa
	if denom < 0.1 {
		denom = 0.1
	}
	return b.cfg.BuyScale * annualGrossIncome *
		math.Exp(b.cfg.BuyEpsilon*b.rng.Gaussian()) / denom
}

// InitialSalePrice marks up the quality band's smoothed sold price,
// penalized when the market is slow, and never lists below the outstanding
// mortgage principal.
func (b *Behaviour) InitialSalePrice(avgPrice, avgDaysOnMarket, principal float64) float64 {
	exponent := b.cfg.SaleMarkup +
		math.Log(avgPrice+1.0) -
		b.cfg.SaleWeightDaysOnMkt*math.Log((avgDaysOnMarket+1.0)/31.0) +
		b.cfg.SaleEpsilon*b.rng.Gaussian()
	return math.Max(math.Exp(exponent), principal)
}

// DecideToReduceSalePrice is the monthly repricing coin flip for an unsold
// listing.
func (b *Behaviour) DecideToReduceSalePrice() bool {
	return b.rng.Bernoulli(b.cfg.PSalePriceReduce)
}

// ReducedSalePrice shrinks the listing price by a log-normal percentage,
// floored at the outstanding principal.
func (b *Behaviour) ReducedSalePrice(currentPrice, principal float64) float64 {
	reduction := b.rng.LogNormal(b.cfg.ReductionMu, b.cfg.ReductionSigma) / 100.0
	if reduction > 1 {
		reduction = 1
	}
	return math.Max(currentPrice*(1.0-reduction), principal)
}

// DecideRentOrPurchase compares the annualized cost of owning (mortgage
// payments less expected appreciation gains) against renting plus the
// psychological cost of renting, through a logistic choice.
func (b *Behaviour) DecideRentOrPurchase(desiredPrice, annualMortgageCost, annualRentCost, hpa float64) bool {
	costOfBuying := annualMortgageCost - hpa*desiredPrice
	costOfRenting := annualRentCost + b.cfg.PsychologicalCostOfRenting
	p := sigmoid(b.cfg.SensitivityRentOrPurchase * (costOfRenting - costOfBuying))
	return b.rng.Bernoulli(p)
}

// DesiredRent is the maximum monthly rent bid, a fixed fraction of income.
func (b *Behaviour) DesiredRent(monthlyNetIncome float64) float64 {
	return b.cfg.DesiredRentIncomeFraction * monthlyNetIncome
}

// BuyToLetRent prices a new rental listing as a noisy markup over the
// quality band's smoothed rent.
func (b *Behaviour) BuyToLetRent(avgRent, avgDaysOnMarket float64) float64 {
	exponent := b.cfg.RentMarkup +
		math.Log(avgRent+1.0) -
		b.cfg.SaleWeightDaysOnMkt*math.Log((avgDaysOnMarket+1.0)/31.0) +
		b.cfg.RentEpsilon*b.rng.Gaussian()
	return math.Exp(exponent)
}

// ReducedRentalPrice is the monthly markdown applied to an unlet listing.
func (b *Behaviour) ReducedRentalPrice(currentPrice float64) float64 {
	return currentPrice * (1.0 - b.cfg.RentReduction)
}

// DecideToSellHome is the owner-occupier's monthly listing coin flip,
// calibrated to the average tenure.
func (b *Behaviour) DecideToSellHome() bool {
	return b.rng.Bernoulli(b.drv.MonthlyPSell)
}

// DesiredDownPayment is the fraction of the bank balance the household
// prefers to put down; the purchase itself may require more to satisfy the
// lender's haircut.
func (b *Behaviour) DesiredDownPayment(bankBalance float64) float64 {
	f := b.cfg.DownpaymentFraction + b.cfg.DownpaymentFractionEpsilon*b.rng.Gaussian()
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return bankBalance * f
}

// DecideToBuyInvestmentProperty gates on investor status, portfolio room,
// and a cash buffer, then chooses on the spread between the effective
// gross yield and the mortgage rate with the configured intensity of
// choice. effectiveYield should already fold in expected occupancy, the
// yield trend, and price appreciation.
func (b *Behaviour) DecideToBuyInvestmentProperty(nProperties int, bankBalance, desiredBankBalance, effectiveYield, annualMortgageRate float64) bool {
	if !b.btlInvestor || nProperties >= b.desiredBTLProperties {
		return false
	}
	if bankBalance < b.cfg.BTLMinBankBalance*desiredBankBalance {
		return false
	}
	p := sigmoid(b.cfg.BTLChoiceIntensity * (effectiveYield - annualMortgageRate))
	return b.rng.Bernoulli(p)
}

// DecideToSellInvestmentProperty is the monthly divestment coin flip,
// scaled up when the effective yield falls below the mortgage rate and
// down when it exceeds it.
func (b *Behaviour) DecideToSellInvestmentProperty(effectiveYield, annualMortgageRate float64) bool {
	p := 2.0 * b.drv.MonthlyPSell * (1.0 - sigmoid(b.cfg.BTLChoiceIntensity*(effectiveYield-annualMortgageRate)))
	return b.rng.Bernoulli(p)
}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }
