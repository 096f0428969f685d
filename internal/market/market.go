// Package market provides the order-book matching engine for the sale and
// rental housing markets. Each region owns one market of each kind; asks
// persist across steps, bids live for a single monthly clearing pass.
package market

import (
	"log/slog"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
	"github.com/talgya/housesim/internal/housing"
)

// Kind distinguishes the two market variants.
type Kind uint8

const (
	KindSale Kind = iota
	KindRental
)

func (k Kind) String() string {
	if k == KindRental {
		return "rental"
	}
	return "sale"
}

// Market is the shared order-book engine. Asks are keyed by house (at most
// one per house); bids are keyed by bidder (at most one per household per
// step, enforced here and by the household itself across both markets).
type Market struct {
	Kind   Kind
	Region int

	cfg *config.Config
	rng *entropy.Source

	book  map[housing.HouseID]*housing.Offer
	bids  map[housing.HouseholdID]*housing.Bid
	month int

	Stats *Stats

	recorder Recorder

	// afterTransaction lets the rental variant extend transaction
	// completion (yield statistics) without virtual dispatch.
	afterTransaction func(offer *housing.Offer, price float64)
}

func newMarket(kind Kind, region int, cfg *config.Config, rng *entropy.Source, rec Recorder) *Market {
	return &Market{
		Kind:     kind,
		Region:   region,
		cfg:      cfg,
		rng:      rng,
		book:     make(map[housing.HouseID]*housing.Offer),
		bids:     make(map[housing.HouseholdID]*housing.Bid),
		Stats:    newStats(kind, cfg),
		recorder: rec,
	}
}

// SetMonth advances the market clock. Called by the simulation at the start
// of each step, before households act.
func (m *Market) SetMonth(month int) { m.month = month }

// Offer registers an ask for house at price and returns the created record.
// Attempting to list a house that already has an active ask in this market
// is rejected and the existing record is returned unchanged.
func (m *Market) Offer(h *housing.House, price float64) *housing.Offer {
	if existing, ok := m.book[h.ID]; ok {
		slog.Warn("house already listed, offer rejected",
			"market", m.Kind.String(), "region", m.Region, "house", h.ID, "price", price)
		return existing
	}
	o := &housing.Offer{
		House:        h,
		Seller:       h.Owner,
		InitialPrice: price,
		Price:        price,
		ListedAt:     m.month,
	}
	m.book[h.ID] = o
	if m.Kind == KindSale {
		h.PutForSale(o)
	} else {
		h.PutForRent(o)
	}
	return o
}

// UpdateOffer replaces the asking price in place. The listing time is kept
// so days-on-market statistics stay accurate.
func (m *Market) UpdateOffer(o *housing.Offer, newPrice float64) {
	if _, ok := m.book[o.House.ID]; !ok {
		slog.Warn("update on offer not in book",
			"market", m.Kind.String(), "region", m.Region, "house", o.House.ID)
		return
	}
	o.Price = newPrice
}

// RemoveOffer withdraws the ask and clears the house's on-market marker.
func (m *Market) RemoveOffer(o *housing.Offer) {
	if _, ok := m.book[o.House.ID]; !ok {
		slog.Warn("remove on offer not in book",
			"market", m.Kind.String(), "region", m.Region, "house", o.House.ID)
		return
	}
	delete(m.book, o.House.ID)
	if m.Kind == KindSale {
		o.House.ResetSaleOffer()
	} else {
		o.House.ResetRentalOffer()
	}
}

// Bid records an intent to buy or rent at up to price for this step. A
// second bid from the same household in the same step is rejected.
func (m *Market) Bid(buyer housing.Bidder, price float64) {
	m.placeBid(buyer, price, false)
}

// BTLBid records a buy-to-let bid: on completion the buyer lets the house
// out instead of moving in. Only meaningful on the sale market.
func (m *Market) BTLBid(buyer housing.Bidder, price float64) {
	m.placeBid(buyer, price, true)
}

func (m *Market) placeBid(buyer housing.Bidder, price float64, btl bool) {
	id := buyer.PartyID()
	if _, ok := m.bids[id]; ok {
		slog.Warn("duplicate bid in same step, rejected",
			"market", m.Kind.String(), "region", m.Region, "household", id)
		return
	}
	if price <= 0 {
		return
	}
	m.bids[id] = &housing.Bid{Buyer: buyer, Price: price, BuyToLet: btl}
}

// NOffers returns the number of active asks.
func (m *Market) NOffers() int { return len(m.book) }

// NBids returns the number of bids submitted this step.
func (m *Market) NBids() int { return len(m.bids) }

// OfferFor returns the active ask for a house, or nil.
func (m *Market) OfferFor(id housing.HouseID) *housing.Offer { return m.book[id] }

// BidFor returns the bid submitted by a household this step, or nil.
func (m *Market) BidFor(id housing.HouseholdID) *housing.Bid { return m.bids[id] }
