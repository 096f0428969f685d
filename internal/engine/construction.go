package engine

import (
	"log/slog"
	"sort"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
	"github.com/talgya/housesim/internal/housing"
)

// Construction is the non-household house owner. It builds toward a target
// stock proportional to the number of households, lists new builds at the
// quality band's reference price, and marks unsold stock down every month.
// It never buys, rents, or resides.
type Construction struct {
	region *Region
	cfg    *config.Config
	rng    *entropy.Source

	// unsold is the builder's current inventory, all of it listed.
	unsold map[housing.HouseID]*housing.House

	built int // lifetime count
}

func newConstruction(region *Region, cfg *config.Config, rng *entropy.Source) *Construction {
	return &Construction{
		region: region,
		cfg:    cfg,
		rng:    rng,
		unsold: make(map[housing.HouseID]*housing.House),
	}
}

// PartyID implements the market party contract with the reserved id.
func (c *Construction) PartyID() housing.HouseholdID { return housing.ConstructionID }

// Step builds this month's shortfall between the target stock and the
// region's existing houses, lists each new build, and reprices last
// month's unsold inventory downward. newHouse allocates a house in the
// region's arena with the builder as owner.
func (c *Construction) Step(newHouse func(quality int) *housing.House) {
	target := int(c.cfg.Construction.HousesPerHousehold * float64(len(c.region.Households)))
	shortfall := target - len(c.region.Houses)

	for _, id := range c.sortedUnsoldIDs() {
		h := c.unsold[id]
		if o := h.SaleOffer(); o != nil {
			c.region.Sale.UpdateOffer(o, o.Price*c.cfg.Construction.RepriceFactor)
		}
	}

	for i := 0; i < shortfall; i++ {
		q := c.rng.IntBetween(0, c.cfg.Simulation.NQuality-1)
		h := newHouse(q)
		c.unsold[h.ID] = h
		c.built++
		c.region.Sale.Offer(h, c.region.Sale.Stats.ReferencePrice(q))
	}
}

// Absorb takes ownership of an orphaned house and relists it at the
// quality band's reference price. Used when an estate has no heir.
func (c *Construction) Absorb(h *housing.House) {
	h.Owner = c
	c.unsold[h.ID] = h
	c.region.Sale.Offer(h, c.region.Sale.Stats.ReferencePrice(h.Quality))
}

// TotalBuilt returns the lifetime number of houses constructed.
func (c *Construction) TotalBuilt() int { return c.built }

// Unsold returns the size of the builder's current inventory.
func (c *Construction) Unsold() int { return len(c.unsold) }

// CompleteHouseSale removes a sold new build from the inventory. Sale
// proceeds are outside the model; the builder has no balance sheet.
func (c *Construction) CompleteHouseSale(offer *housing.Offer, price float64) {
	delete(c.unsold, offer.House.ID)
}

// CompleteHouseLet should never fire; the builder does not let.
func (c *Construction) CompleteHouseLet(offer *housing.Offer, price float64) {
	slog.Error("construction sector matched on rental market", "house", offer.House.ID)
}

// EndOfLettingAgreement should never fire; the builder has no tenants.
func (c *Construction) EndOfLettingAgreement(h *housing.House, _ housing.PaymentAgreement) {
	slog.Error("construction sector notified of tenancy end", "house", h.ID)
}

func (c *Construction) sortedUnsoldIDs() []housing.HouseID {
	ids := make([]housing.HouseID, 0, len(c.unsold))
	for id := range c.unsold {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
