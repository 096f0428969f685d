package engine

import (
	"log/slog"
	"math"

	"github.com/talgya/housesim/internal/household"
	"github.com/talgya/housesim/internal/housing"
)

// processDemographics runs the monthly birth/death scheduler for one
// region: new households enter at a drawn age and income percentile, and
// each household faces a Gompertz death hazard rising with age. A dying
// household bequeaths everything to a randomly chosen survivor in the same
// region.
func (s *Simulation) processDemographics(r *Region) (births, deaths int) {
	dcfg := &s.cfg.Demographics

	expected := dcfg.MonthlyBirthRate * float64(len(r.Households))
	n := int(expected)
	if s.rng.Bernoulli(expected - float64(n)) {
		n++
	}
	for i := 0; i < n; i++ {
		age := dcfg.AgeAtBirthMin + s.rng.Float()*(dcfg.AgeAtBirthMax-dcfg.AgeAtBirthMin)
		s.spawnHousehold(r, age)
		births++
	}

	var dying []*household.Household
	for _, id := range r.sortedHouseholdIDs() {
		h := r.Households[id]
		annual := dcfg.MortalityScale * math.Exp(dcfg.MortalityShape*h.Age())
		if s.rng.Bernoulli(annual / 12.0) {
			dying = append(dying, h)
		}
	}
	for _, h := range dying {
		beneficiary := s.pickBeneficiary(r, h.PartyID())
		if beneficiary == nil {
			slog.Warn("household died with no surviving beneficiary",
				"region", r.ID, "household", h.PartyID())
			for _, house := range h.ReleaseEstate() {
				r.Construction.Absorb(house)
			}
			delete(r.Households, h.PartyID())
			deaths++
			continue
		}
		h.TransferAllWealthTo(beneficiary)
		delete(r.Households, h.PartyID())
		deaths++
	}
	return births, deaths
}

// pickBeneficiary draws a uniform surviving household from the region,
// excluding the deceased.
func (s *Simulation) pickBeneficiary(r *Region, exclude housing.HouseholdID) *household.Household {
	ids := r.sortedHouseholdIDs()
	candidates := ids[:0]
	for _, id := range ids {
		if id != exclude {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return r.Households[candidates[s.rng.IntBetween(0, len(candidates)-1)]]
}

// spawnHousehold allocates a household in the region's arena with a fresh
// income percentile draw.
func (s *Simulation) spawnHousehold(r *Region, age float64) *household.Household {
	s.nextHouseholdID++
	h := household.New(s.nextHouseholdID, r.ID, age, s.rng.Float(), s.cfg, s.rng.Fork(),
		household.Deps{Bank: s.Bank, Sale: r.Sale, Rental: r.Rental})
	r.Households[h.PartyID()] = h
	return h
}

// newHouseIn allocates a house in the region's arena, owned by the
// construction sector.
func (s *Simulation) newHouseIn(r *Region, quality int) *housing.House {
	s.nextHouseID++
	h := &housing.House{
		ID:      s.nextHouseID,
		Quality: quality,
		Region:  r.ID,
		Owner:   r.Construction,
	}
	r.Houses[h.ID] = h
	return h
}
