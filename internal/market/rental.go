package market

import (
	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
	"github.com/talgya/housesim/internal/housing"
)

// RentalMarket is the tenancy market for one region. On top of the shared
// order-book engine it tracks the gross rental yield realized by cleared
// tenancies, at a short and a long time constant; the ratio of the two is
// the trend signal buy-to-let investors act on.
type RentalMarket struct {
	*Market

	sale *SaleMarket

	yieldShort float64
	yieldLong  float64
	decayShort float64
	decayLong  float64

	avgTenancyMonths float64
}

// NewRentalMarket builds a rental market coupled to the region's sale
// market, whose smoothed prices anchor yield calculations.
func NewRentalMarket(region int, cfg *config.Config, rng *entropy.Source, rec Recorder, sale *SaleMarket) *RentalMarket {
	m := &RentalMarket{
		Market:           newMarket(KindRental, region, cfg, rng, rec),
		sale:             sale,
		yieldShort:       cfg.Market.RentGrossYield,
		yieldLong:        cfg.Market.RentGrossYield,
		decayShort:       cfg.Derived.YieldDecayShort,
		decayLong:        cfg.Derived.YieldDecayLong,
		avgTenancyMonths: float64(cfg.Household.TenancyLengthAverage),
	}
	m.afterTransaction = m.recordYield
	return m
}

func (m *RentalMarket) recordYield(offer *housing.Offer, price float64) {
	housePrice := m.sale.Stats.AveragePrice(offer.House.Quality)
	if housePrice <= 0 {
		return
	}
	y := price * 12.0 / housePrice
	m.yieldShort = m.decayShort*m.yieldShort + (1-m.decayShort)*y
	m.yieldLong = m.decayLong*m.yieldLong + (1-m.decayLong)*y
}

// AvgSoldGrossYield is the short-horizon smoothed annual rent over house
// price of cleared tenancies.
func (m *RentalMarket) AvgSoldGrossYield() float64 { return m.yieldShort }

// LongTermAvgGrossYield is the same yield smoothed over a far longer
// horizon, approximating the run's structural yield level.
func (m *RentalMarket) LongTermAvgGrossYield() float64 { return m.yieldLong }

// ExpectedOccupancy is the fraction of time a rental property is expected
// to be earning rent, given current letting delays: the average tenancy
// length over that length plus the smoothed time on market.
func (m *RentalMarket) ExpectedOccupancy() float64 {
	vacantMonths := m.Stats.AverageDaysOnMarket() / daysPerMonth
	return m.avgTenancyMonths / (m.avgTenancyMonths + vacantMonths)
}
