// Package housing provides the core domain model: houses, market order
// records, and the payment agreements that tie residents to owners.
package housing

// HouseID is a stable identifier for a house, unique across the whole run.
type HouseID uint64

// HouseholdID is a stable identifier for a household. ID 0 is reserved for
// the construction sector.
type HouseholdID uint64

// ConstructionID is the owner id used by the construction sector.
const ConstructionID HouseholdID = 0

// Party is anything that can take part in a housing transaction.
type Party interface {
	PartyID() HouseholdID
}

// Owner receives seller-side transaction callbacks. Implemented by
// households and by the construction sector.
type Owner interface {
	Party
	// CompleteHouseSale is called when one of the owner's sale offers clears.
	CompleteHouseSale(offer *Offer, price float64)
	// CompleteHouseLet is called when one of the owner's rental offers clears.
	CompleteHouseLet(offer *Offer, price float64)
	// EndOfLettingAgreement is called by a departing tenant.
	EndOfLettingAgreement(h *House, contract PaymentAgreement)
}

// Bidder receives buyer-side transaction callbacks.
type Bidder interface {
	Party
	// CompleteHousePurchase finalizes the buyer's side of a matched sale:
	// underwriting, down payment, ending any current tenancy. It returns
	// ok=false if the purchase had to be aborted (loan no longer approved),
	// in which case the market leaves the offer on the book and no state on
	// either side has changed.
	CompleteHousePurchase(offer *Offer, price float64, buyToLet bool) (mortgage *MortgageAgreement, ok bool)
	// TakePossession is called after ownership has transferred: the buyer
	// moves in, or lists the house for rent when bought to let.
	TakePossession(h *House, buyToLet bool)
	// CompleteHouseRental finalizes a matched rental.
	CompleteHouseRental(offer *Offer, price float64)
}

// Resident is the occupant of a house, able to be evicted by its owner.
type Resident interface {
	Party
	GetEvicted()
}

// House is a single dwelling with a fixed quality band. A house has at most
// one active sale offer and at most one active rental offer; it may be
// listed for sale while let, but never listed twice on the same market.
type House struct {
	ID      HouseID
	Quality int // 0..NQuality-1, fixed at construction
	Region  int

	Owner    Owner
	Resident Resident // nil when empty

	saleOffer   *Offer
	rentalOffer *Offer
}

// IsOnSaleMarket reports whether the house has an active sale offer.
func (h *House) IsOnSaleMarket() bool { return h.saleOffer != nil }

// IsOnRentalMarket reports whether the house has an active rental offer.
func (h *House) IsOnRentalMarket() bool { return h.rentalOffer != nil }

// SaleOffer returns the active sale offer, or nil.
func (h *House) SaleOffer() *Offer { return h.saleOffer }

// RentalOffer returns the active rental offer, or nil.
func (h *House) RentalOffer() *Offer { return h.rentalOffer }

// PutForSale marks the house as listed on the sale market.
func (h *House) PutForSale(o *Offer) { h.saleOffer = o }

// ResetSaleOffer clears the sale-market marker.
func (h *House) ResetSaleOffer() { h.saleOffer = nil }

// PutForRent marks the house as listed on the rental market.
func (h *House) PutForRent(o *Offer) { h.rentalOffer = o }

// ResetRentalOffer clears the rental-market marker.
func (h *House) ResetRentalOffer() { h.rentalOffer = nil }
