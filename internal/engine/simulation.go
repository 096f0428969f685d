// Package engine ties the housing model together: regions, demographics,
// construction, and the monthly step loop.
package engine

import (
	"log/slog"

	"github.com/talgya/housesim/internal/bank"
	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
	"github.com/talgya/housesim/internal/housing"
	"github.com/talgya/housesim/internal/market"
)

// IndicatorRecord is the monthly aggregate emitted per region.
type IndicatorRecord struct {
	Month  int
	Region int

	HousePriceIndex  float64
	RentalPriceIndex float64
	AvgDaysOnMarket  float64
	SaleVolume       int
	RentalVolume     int

	Population     int
	Homeless       int
	Renting        int
	OwnerOccupiers int
	Investors      int
	Bankruptcies   int
}

// Recorder is the micro-data sink for a whole run.
type Recorder interface {
	market.Recorder
	bank.LoanRecorder
	RecordIndicators(rec IndicatorRecord)
}

// SimStats are the aggregate statistics across all regions, refreshed at
// the end of every month.
type SimStats struct {
	Month           int     `json:"month"`
	Population      int     `json:"population"`
	Homeless        int     `json:"homeless"`
	Renting         int     `json:"renting"`
	OwnerOccupiers  int     `json:"owner_occupiers"`
	Investors       int     `json:"investors"`
	Bankruptcies    int     `json:"bankruptcies"`
	Houses          int     `json:"houses"`
	HousePriceIndex float64 `json:"house_price_index"`
	SaleVolume      int     `json:"sale_volume"`
	RentalVolume    int     `json:"rental_volume"`
	LoansThisMonth  int     `json:"loans_this_month"`
	Births          int     `json:"births"`
	Deaths          int     `json:"deaths"`
}

// Simulation holds the complete model state and wires the systems
// together. Everything is single-threaded; callers synchronize externally
// when reading state while a run is in progress.
type Simulation struct {
	cfg *config.Config
	rng *entropy.Source

	Bank    *bank.Bank
	Regions []*Region

	Month int
	Stats SimStats

	recorder Recorder

	nextHouseID     housing.HouseID
	nextHouseholdID housing.HouseholdID
}

// New builds the simulation: the bank, every region with its market pair,
// and the initial household population. rec may be nil to disable
// micro-data recording.
func New(cfg *config.Config, rec Recorder) *Simulation {
	rng := entropy.NewSource(cfg.Simulation.Seed)
	var mrec market.Recorder
	var lrec bank.LoanRecorder
	if rec != nil {
		mrec = rec
		lrec = rec
	}
	s := &Simulation{
		cfg:      cfg,
		rng:      rng,
		Bank:     bank.New(cfg, lrec),
		recorder: rec,
	}
	for i := 0; i < cfg.Simulation.Regions; i++ {
		r := newRegion(i, cfg, rng.Fork(), mrec)
		s.Regions = append(s.Regions, r)
		for j := 0; j < cfg.Simulation.TargetPopulation; j++ {
			age := cfg.Demographics.AgeAtBirthMin +
				s.rng.Float()*(65.0-cfg.Demographics.AgeAtBirthMin)
			s.spawnHousehold(r, age)
		}
	}
	s.refreshStats(0, 0, 0, 0)
	return s
}

// Step advances the whole model by one simulated month: demographics,
// construction, household decisions in id order, then batch market
// clearing and statistics.
func (s *Simulation) Step() {
	s.Month++
	births, deaths := 0, 0
	saleVolume, rentalVolume := 0, 0

	for _, r := range s.Regions {
		r.Sale.SetMonth(s.Month)
		r.Rental.SetMonth(s.Month)

		b, d := s.processDemographics(r)
		births += b
		deaths += d

		region := r
		r.Construction.Step(func(quality int) *housing.House {
			return s.newHouseIn(region, quality)
		})

		for _, id := range r.sortedHouseholdIDs() {
			r.Households[id].Step(s.Month)
		}

		saleVolume += r.Sale.Clear(s.Month)
		rentalVolume += r.Rental.Clear(s.Month)

		if s.recorder != nil {
			s.recorder.RecordIndicators(s.regionIndicators(r))
		}
		r.Sale.Stats.EndOfMonth()
		r.Rental.Stats.EndOfMonth()
	}

	loans := s.Bank.Stats.LoansThisMonth()
	s.refreshStats(births, deaths, saleVolume, rentalVolume)
	s.Bank.Stats.EndOfMonth()

	slog.Info("monthly report",
		"month", s.Month,
		"population", s.Stats.Population,
		"homeless", s.Stats.Homeless,
		"renting", s.Stats.Renting,
		"owner_occupiers", s.Stats.OwnerOccupiers,
		"houses", s.Stats.Houses,
		"hpi", s.Stats.HousePriceIndex,
		"sales", saleVolume,
		"rentals", rentalVolume,
		"loans", loans,
		"births", births,
		"deaths", deaths,
		"bankruptcies", s.Stats.Bankruptcies,
	)
	if s.Month%12 == 0 {
		slog.Info("yearly summary",
			"year", s.Month/12,
			"hpi", s.Stats.HousePriceIndex,
			"ftb_affordability", s.Bank.Stats.FTBAffordability(),
			"median_ltv", s.Bank.Stats.LTVQuantile(0.5),
			"total_loans", s.Bank.Stats.TotalLoans(),
		)
	}
}

// Run executes the configured number of months.
func (s *Simulation) Run() {
	for s.Month < s.cfg.Simulation.Months {
		s.Step()
	}
}

// CurrentMonth returns the most recently completed month.
func (s *Simulation) CurrentMonth() int { return s.Month }

func (s *Simulation) regionIndicators(r *Region) IndicatorRecord {
	rec := IndicatorRecord{
		Month:            s.Month,
		Region:           r.ID,
		HousePriceIndex:  r.Sale.Stats.HousePriceIndex(),
		RentalPriceIndex: r.Rental.Stats.HousePriceIndex(),
		AvgDaysOnMarket:  r.Sale.Stats.AverageDaysOnMarket(),
		SaleVolume:       r.Sale.Stats.TransactionsThisMonth(),
		RentalVolume:     r.Rental.Stats.TransactionsThisMonth(),
		Population:       len(r.Households),
	}
	for _, h := range r.Households {
		switch {
		case h.IsInSocialHousing():
			rec.Homeless++
		case h.IsRenting():
			rec.Renting++
		default:
			rec.OwnerOccupiers++
		}
		if h.IsPropertyInvestor() {
			rec.Investors++
		}
		if h.IsBankrupt() {
			rec.Bankruptcies++
		}
	}
	return rec
}

func (s *Simulation) refreshStats(births, deaths, saleVolume, rentalVolume int) {
	st := SimStats{
		Month:          s.Month,
		Births:         births,
		Deaths:         deaths,
		SaleVolume:     saleVolume,
		RentalVolume:   rentalVolume,
		LoansThisMonth: s.Bank.Stats.LoansThisMonth(),
	}
	hpi := 0.0
	for _, r := range s.Regions {
		st.Population += len(r.Households)
		st.Houses += len(r.Houses)
		hpi += r.Sale.Stats.HousePriceIndex()
		for _, h := range r.Households {
			switch {
			case h.IsInSocialHousing():
				st.Homeless++
			case h.IsRenting():
				st.Renting++
			default:
				st.OwnerOccupiers++
			}
			if h.IsPropertyInvestor() {
				st.Investors++
			}
			if h.IsBankrupt() {
				st.Bankruptcies++
			}
		}
	}
	if len(s.Regions) > 0 {
		st.HousePriceIndex = hpi / float64(len(s.Regions))
	}
	s.Stats = st
}
