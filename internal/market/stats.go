package market

import (
	"math"

	"github.com/talgya/housesim/internal/config"
)

const daysPerMonth = 30.4375

// Stats tracks exponential moving averages of market outcomes: sold price
// per quality band, days on market, and a house price index with its
// annualized appreciation. Averages are seeded from the reference price
// curve so the first months of a run read sensible values.
type Stats struct {
	kind     Kind
	nQuality int

	priceDecay float64 // weight of a new monthly mean in the price EMAs
	daysDecay  float64 // per-transaction decay for the days-on-market EMA

	refPrice        []float64
	avgPrice        []float64
	avgDaysOnMarket float64

	monthSum   []float64
	monthCount []int
	monthSold  int
	totalSold  int

	hpi       []float64
	hpiPos    int
	hpiFilled int
}

func newStats(kind Kind, cfg *config.Config) *Stats {
	nq := cfg.Simulation.NQuality
	s := &Stats{
		kind:            kind,
		nQuality:        nq,
		priceDecay:      cfg.Market.AveragePriceDecay,
		daysDecay:       cfg.Derived.MarketAvgDecay,
		refPrice:        make([]float64, nq),
		avgPrice:        make([]float64, nq),
		avgDaysOnMarket: cfg.Market.InitialDaysOnMkt,
		monthSum:        make([]float64, nq),
		monthCount:      make([]int, nq),
		hpi:             make([]float64, cfg.Market.HPIRecordMonths),
	}
	// Reference sale prices follow a geometric ramp across quality bands;
	// reference rents are the corresponding gross-yield income stream.
	ratio := cfg.Market.ReferencePriceMax / cfg.Market.ReferencePriceMin
	for q := 0; q < nq; q++ {
		p := cfg.Market.ReferencePriceMin * math.Pow(ratio, float64(q)/float64(nq-1))
		if kind == KindRental {
			p = p * cfg.Market.RentGrossYield / 12.0
		}
		s.refPrice[q] = p
		s.avgPrice[q] = p
	}
	for i := range s.hpi {
		s.hpi[i] = 1.0
	}
	return s
}

// ReferencePrice returns the calibration price for a quality band: a sale
// price on the sale market, a monthly rent on the rental market.
func (s *Stats) ReferencePrice(quality int) float64 { return s.refPrice[quality] }

// AveragePrice returns the smoothed sold price for a quality band.
func (s *Stats) AveragePrice(quality int) float64 { return s.avgPrice[quality] }

// AverageDaysOnMarket returns the smoothed time from listing to sale.
func (s *Stats) AverageDaysOnMarket() float64 { return s.avgDaysOnMarket }

// TransactionsThisMonth returns the number recorded since the last
// EndOfMonth call.
func (s *Stats) TransactionsThisMonth() int { return s.monthSold }

// TotalTransactions returns the count over the whole run.
func (s *Stats) TotalTransactions() int { return s.totalSold }

func (s *Stats) recordTransaction(quality int, price float64, monthsOnMarket int) {
	s.monthSum[quality] += price
	s.monthCount[quality]++
	s.monthSold++
	s.totalSold++
	days := daysPerMonth * float64(monthsOnMarket+1)
	s.avgDaysOnMarket = s.daysDecay*s.avgDaysOnMarket + (1-s.daysDecay)*days
}

// EndOfMonth folds the month's transactions into the per-quality price
// EMAs, appends the current price index to the appreciation record, and
// resets the monthly accumulators.
func (s *Stats) EndOfMonth() {
	for q := 0; q < s.nQuality; q++ {
		if s.monthCount[q] > 0 {
			mean := s.monthSum[q] / float64(s.monthCount[q])
			s.avgPrice[q] += s.priceDecay * (mean - s.avgPrice[q])
		}
		s.monthSum[q] = 0
		s.monthCount[q] = 0
	}
	s.monthSold = 0

	s.hpi[s.hpiPos] = s.HousePriceIndex()
	s.hpiPos = (s.hpiPos + 1) % len(s.hpi)
	if s.hpiFilled < len(s.hpi) {
		s.hpiFilled++
	}
}

// HousePriceIndex is the mean ratio of smoothed sold prices to reference
// prices across quality bands; 1.0 at calibration.
func (s *Stats) HousePriceIndex() float64 {
	sum := 0.0
	for q := 0; q < s.nQuality; q++ {
		sum += s.avgPrice[q] / s.refPrice[q]
	}
	return sum / float64(s.nQuality)
}

// HousePriceAppreciation returns the annualized growth rate of the house
// price index over the recorded window. Zero until the window has filled.
func (s *Stats) HousePriceAppreciation() float64 {
	if s.hpiFilled < len(s.hpi) {
		return 0
	}
	newest := s.hpi[(s.hpiPos+len(s.hpi)-1)%len(s.hpi)]
	oldest := s.hpi[s.hpiPos]
	if oldest <= 0 {
		return 0
	}
	months := float64(len(s.hpi) - 1)
	return (newest/oldest - 1) * 12.0 / months
}
