package market

import (
	"log/slog"
	"sort"

	"github.com/talgya/housesim/internal/housing"
)

// financials is satisfied by households; used to enrich transaction
// records with buyer state at clearing time.
type financials interface {
	BankBalance() float64
	AnnualGrossTotalIncome() float64
}

// Clear runs the monthly batch clearing pass. Bids and asks collected
// during the step are matched against a consistent snapshot: the best bid
// takes the cheapest ask it can afford, at the ask price, with the gazump
// rule pricing between ask and bid when the bid exceeds ask by the BidUp
// ratio. Each house clears to at most one bidder and each bidder takes
// at most one house. Unmatched asks stay listed; unmatched bids are
// dropped (households re-bid next step).
func (m *Market) Clear(month int) int {
	if len(m.bids) == 0 || len(m.book) == 0 {
		m.bids = make(map[housing.HouseholdID]*housing.Bid)
		return 0
	}

	asks := make([]*housing.Offer, 0, len(m.book))
	for _, o := range m.book {
		asks = append(asks, o)
	}
	sort.Slice(asks, func(i, j int) bool {
		if asks[i].Price != asks[j].Price {
			return asks[i].Price < asks[j].Price
		}
		return asks[i].House.ID < asks[j].House.ID
	})

	bids := make([]*housing.Bid, 0, len(m.bids))
	for _, b := range m.bids {
		bids = append(bids, b)
	}
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].Price != bids[j].Price {
			return bids[i].Price > bids[j].Price
		}
		return bids[i].Buyer.PartyID() < bids[j].Buyer.PartyID()
	})

	cleared := 0
	i := 0
	for _, b := range bids {
		if i >= len(asks) {
			break
		}
		ask := asks[i]
		if ask.Price > b.Price {
			// The cheapest remaining ask is out of reach, and every later
			// bid is lower still.
			break
		}
		price := ask.Price
		if gazumpFloor := ask.Price * m.cfg.Market.BidUp; b.Price >= gazumpFloor {
			// Competitive bidding: clear between ask and bid.
			price = gazumpFloor + m.rng.Float()*(b.Price-gazumpFloor)
		}
		if m.completeTransaction(b, ask, price, month) {
			cleared++
			i++
		}
	}

	m.bids = make(map[housing.HouseholdID]*housing.Bid)
	return cleared
}

// completeTransaction finalizes one match. Returns false when the buyer
// aborted (sale market only), in which case the ask stays on the book and
// neither side has changed state.
func (m *Market) completeTransaction(b *housing.Bid, ask *housing.Offer, price float64, month int) bool {
	h := ask.House

	var mortgage *housing.MortgageAgreement
	if m.Kind == KindSale {
		var ok bool
		mortgage, ok = b.Buyer.CompleteHousePurchase(ask, price, b.BuyToLet)
		if !ok {
			slog.Warn("matched sale aborted by buyer, ask stays listed",
				"region", m.Region, "house", h.ID, "price", price, "buyer", b.Buyer.PartyID())
			return false
		}
	}

	seller := ask.Seller
	m.RemoveOffer(ask)

	if m.Kind == KindSale {
		seller.CompleteHouseSale(ask, price)
		// Ownership transfers atomically with the sale. The construction
		// sector never buys, so every buyer is also an owner.
		if newOwner, ok := b.Buyer.(housing.Owner); ok {
			h.Owner = newOwner
		}
		b.Buyer.TakePossession(h, b.BuyToLet)
	} else {
		b.Buyer.CompleteHouseRental(ask, price)
		seller.CompleteHouseLet(ask, price)
	}

	m.Stats.recordTransaction(h.Quality, price, month-ask.ListedAt)
	if m.afterTransaction != nil {
		m.afterTransaction(ask, price)
	}

	if m.recorder != nil {
		rec := TransactionRecord{
			Month:        month,
			Kind:         m.Kind,
			Region:       m.Region,
			HouseID:      h.ID,
			Quality:      h.Quality,
			InitialPrice: ask.InitialPrice,
			ListedAt:     ask.ListedAt,
			Price:        price,
			BidPrice:     b.Price,
			BuyerID:      b.Buyer.PartyID(),
			SellerID:     seller.PartyID(),
		}
		if f, ok := b.Buyer.(financials); ok {
			rec.BuyerBankBalance = f.BankBalance()
			rec.BuyerAnnualIncome = f.AnnualGrossTotalIncome()
		}
		if f, ok := seller.(financials); ok {
			rec.SellerBankBalance = f.BankBalance()
			rec.SellerAnnualIncome = f.AnnualGrossTotalIncome()
		}
		if mortgage != nil {
			rec.MortgagePrincipal = mortgage.Principal
			rec.MortgageDownPayment = mortgage.DownPayment
		}
		m.recorder.RecordTransaction(rec)
	}
	return true
}
