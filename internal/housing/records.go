package housing

// Offer is an open ask on a market: one house, one price, one seller.
// InitialPrice and ListedAt never change after listing, so days-on-market
// statistics stay accurate through repricing.
type Offer struct {
	House        *House
	Seller       Owner
	InitialPrice float64
	Price        float64
	ListedAt     int // month the house was first listed
}

// Bid is an intent to buy or rent at up to Price, valid for one clearing
// pass only. A household holds at most one outstanding bid across both
// markets per step.
type Bid struct {
	Buyer    Bidder
	Price    float64
	BuyToLet bool // investor bid: the buyer will let the house, not move in
}
