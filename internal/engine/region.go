package engine

import (
	"sort"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
	"github.com/talgya/housesim/internal/household"
	"github.com/talgya/housesim/internal/housing"
	"github.com/talgya/housesim/internal/market"
)

// Region holds one regional housing system: the house and household arenas
// plus the paired sale and rental markets. Households bid only in their
// home region.
type Region struct {
	ID int

	Houses     map[housing.HouseID]*housing.House
	Households map[housing.HouseholdID]*household.Household

	Sale   *market.SaleMarket
	Rental *market.RentalMarket

	Construction *Construction

	rng *entropy.Source
}

func newRegion(id int, cfg *config.Config, rng *entropy.Source, rec market.Recorder) *Region {
	sale := market.NewSaleMarket(id, cfg, rng.Fork(), rec)
	r := &Region{
		ID:         id,
		Houses:     make(map[housing.HouseID]*housing.House),
		Households: make(map[housing.HouseholdID]*household.Household),
		Sale:       sale,
		Rental:     market.NewRentalMarket(id, cfg, rng.Fork(), rec, sale),
		rng:        rng,
	}
	r.Construction = newConstruction(r, cfg, rng.Fork())
	return r
}

// sortedHouseholdIDs returns the region's household ids ascending, fixing
// the step order.
func (r *Region) sortedHouseholdIDs() []housing.HouseholdID {
	ids := make([]housing.HouseholdID, 0, len(r.Households))
	for id := range r.Households {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
