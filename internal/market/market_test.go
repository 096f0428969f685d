package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
	"github.com/talgya/housesim/internal/housing"
)

// stubParty implements both sides of a transaction with plain bookkeeping.
type stubParty struct {
	id housing.HouseholdID

	bought  []*housing.House
	sold    []float64
	let     []float64
	rented  []float64
	possess []*housing.House

	refusePurchase bool
}

func (p *stubParty) PartyID() housing.HouseholdID { return p.id }

func (p *stubParty) CompleteHousePurchase(offer *housing.Offer, price float64, buyToLet bool) (*housing.MortgageAgreement, bool) {
	if p.refusePurchase {
		return nil, false
	}
	p.bought = append(p.bought, offer.House)
	return &housing.MortgageAgreement{Principal: price * 0.9}, true
}

func (p *stubParty) TakePossession(h *housing.House, buyToLet bool) {
	p.possess = append(p.possess, h)
}

func (p *stubParty) CompleteHouseRental(offer *housing.Offer, price float64) {
	p.rented = append(p.rented, price)
	offer.House.Resident = p
}

func (p *stubParty) CompleteHouseSale(offer *housing.Offer, price float64) {
	p.sold = append(p.sold, price)
}

func (p *stubParty) CompleteHouseLet(offer *housing.Offer, price float64) {
	p.let = append(p.let, price)
}

func (p *stubParty) EndOfLettingAgreement(h *housing.House, _ housing.PaymentAgreement) {}

func (p *stubParty) GetEvicted() {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Simulation.TargetPopulation = 500
	require.NoError(t, cfg.Validate())
	return &cfg
}

func newTestSale(t *testing.T) *SaleMarket {
	return NewSaleMarket(0, testConfig(t), entropy.NewSource(7), nil)
}

func house(id housing.HouseID, quality int, owner housing.Owner) *housing.House {
	return &housing.House{ID: id, Quality: quality, Region: 0, Owner: owner}
}

func TestOfferRejectsDoubleListing(t *testing.T) {
	m := newTestSale(t)
	seller := &stubParty{id: 1}
	h := house(1, 10, seller)

	first := m.Offer(h, 100000)
	second := m.Offer(h, 90000)

	assert.Same(t, first, second, "second listing must return the existing ask unchanged")
	assert.Equal(t, 100000.0, first.Price)
	assert.Equal(t, 1, m.NOffers())
	assert.True(t, h.IsOnSaleMarket())
}

func TestBidRejectsDuplicateInSameStep(t *testing.T) {
	m := newTestSale(t)
	buyer := &stubParty{id: 9}

	m.Bid(buyer, 100000)
	m.Bid(buyer, 120000)

	assert.Equal(t, 1, m.NBids())
	assert.Equal(t, 100000.0, m.BidFor(9).Price)
}

func TestRemoveOfferClearsMarker(t *testing.T) {
	m := newTestSale(t)
	seller := &stubParty{id: 1}
	h := house(1, 10, seller)

	o := m.Offer(h, 100000)
	m.RemoveOffer(o)

	assert.Equal(t, 0, m.NOffers())
	assert.False(t, h.IsOnSaleMarket())
}

func TestClearMatchesBestBidToCheapestAsk(t *testing.T) {
	m := newTestSale(t)
	cheapSeller := &stubParty{id: 1}
	dearSeller := &stubParty{id: 2}
	cheap := house(1, 5, cheapSeller)
	dear := house(2, 40, dearSeller)
	m.Offer(cheap, 80000)
	m.Offer(dear, 300000)

	strong := &stubParty{id: 10}
	weak := &stubParty{id: 11}
	m.Bid(strong, 320000)
	m.Bid(weak, 90000)

	cleared := m.Clear(1)

	// Best bid takes the cheapest ask; the weaker bid takes the next one if
	// affordable, which 90000 < 300000 is not.
	assert.Equal(t, 1, cleared)
	require.Len(t, strong.bought, 1)
	assert.Equal(t, cheap, strong.bought[0])
	assert.Len(t, weak.bought, 0)
	assert.Len(t, cheapSeller.sold, 1)
	assert.Equal(t, 1, m.NOffers(), "unmatched ask stays listed")
	assert.Equal(t, 0, m.NBids(), "bids do not survive the clearing pass")
}

func TestClearTransfersOwnershipAndPossession(t *testing.T) {
	m := newTestSale(t)
	seller := &stubParty{id: 1}
	buyer := &stubParty{id: 2}
	h := house(1, 5, seller)
	m.Offer(h, 100000)
	m.Bid(buyer, 100000)

	require.Equal(t, 1, m.Clear(1))
	assert.Equal(t, housing.HouseholdID(2), h.Owner.PartyID())
	require.Len(t, buyer.possess, 1)
	assert.False(t, h.IsOnSaleMarket())
}

func TestClearGazumpPricesBetweenAskAndBid(t *testing.T) {
	cfg := testConfig(t)
	m := NewSaleMarket(0, cfg, entropy.NewSource(7), nil)
	seller := &stubParty{id: 1}
	buyer := &stubParty{id: 2}
	h := house(1, 5, seller)

	ask := 100000.0
	bid := 130000.0
	m.Offer(h, ask)
	m.Bid(buyer, bid)
	require.Equal(t, 1, m.Clear(1))

	require.Len(t, seller.sold, 1)
	price := seller.sold[0]
	assert.GreaterOrEqual(t, price, ask*cfg.Market.BidUp)
	assert.LessOrEqual(t, price, bid)
}

func TestClearAtAskBelowGazumpThreshold(t *testing.T) {
	cfg := testConfig(t)
	m := NewSaleMarket(0, cfg, entropy.NewSource(7), nil)
	seller := &stubParty{id: 1}
	buyer := &stubParty{id: 2}
	h := house(1, 5, seller)

	ask := 100000.0
	bid := ask * (cfg.Market.BidUp - 0.001)
	m.Offer(h, ask)
	m.Bid(buyer, bid)
	require.Equal(t, 1, m.Clear(1))

	require.Len(t, seller.sold, 1)
	assert.Equal(t, ask, seller.sold[0])
}

func TestClearAbortedPurchaseLeavesAskListed(t *testing.T) {
	m := newTestSale(t)
	seller := &stubParty{id: 1}
	buyer := &stubParty{id: 2, refusePurchase: true}
	h := house(1, 5, seller)

	m.Offer(h, 100000)
	m.Bid(buyer, 100000)

	assert.Equal(t, 0, m.Clear(1))
	assert.Equal(t, 1, m.NOffers())
	assert.True(t, h.IsOnSaleMarket())
	assert.Len(t, seller.sold, 0)
	assert.Equal(t, housing.HouseholdID(1), h.Owner.PartyID())
}

func TestClearAbortedPurchaseOffersAskToNextBid(t *testing.T) {
	m := newTestSale(t)
	seller := &stubParty{id: 1}
	refuser := &stubParty{id: 2, refusePurchase: true}
	taker := &stubParty{id: 3}
	h := house(1, 5, seller)

	m.Offer(h, 100000)
	m.Bid(refuser, 101000)
	m.Bid(taker, 100000)

	assert.Equal(t, 1, m.Clear(1))
	require.Len(t, taker.bought, 1)
}

func TestRentalClearUpdatesYields(t *testing.T) {
	cfg := testConfig(t)
	rng := entropy.NewSource(7)
	sale := NewSaleMarket(0, cfg, rng.Fork(), nil)
	rental := NewRentalMarket(0, cfg, rng.Fork(), nil, sale)

	landlord := &stubParty{id: 1}
	tenant := &stubParty{id: 2}
	h := house(1, 10, landlord)

	before := rental.AvgSoldGrossYield()
	// A rent far above the reference yield must pull the EMA up.
	rent := sale.Stats.AveragePrice(10) * 0.2 / 12.0
	rental.Offer(h, rent)
	rental.Bid(tenant, rent)
	require.Equal(t, 1, rental.Clear(1))

	assert.Greater(t, rental.AvgSoldGrossYield(), before)
	assert.Len(t, landlord.let, 1)
	assert.Len(t, tenant.rented, 1)
	assert.False(t, h.IsOnRentalMarket())
}

func TestExpectedOccupancyFallsWithSlowLettings(t *testing.T) {
	cfg := testConfig(t)
	rng := entropy.NewSource(7)
	sale := NewSaleMarket(0, cfg, rng.Fork(), nil)
	rental := NewRentalMarket(0, cfg, rng.Fork(), nil, sale)

	before := rental.ExpectedOccupancy()
	// Tenancies that took a year to agree drag the days-on-market EMA up.
	for i := 0; i < 50; i++ {
		rental.Stats.recordTransaction(10, 800, 12)
	}
	assert.Less(t, rental.ExpectedOccupancy(), before)
	assert.InDelta(t, 1.0, before, 0.2)
}

// A listing that attracts no bids for a year: its days-on-market EMA is
// untouched (it only moves on sales), while the repricing policy operates
// on the offer price. Here the market-side guarantee is that the ask and
// its listing time survive every empty clearing pass.
func TestUnsoldListingPersistsAcrossMonths(t *testing.T) {
	m := newTestSale(t)
	seller := &stubParty{id: 1}
	h := house(1, 5, seller)

	m.SetMonth(1)
	o := m.Offer(h, 200000)
	for month := 1; month <= 12; month++ {
		m.SetMonth(month)
		assert.Equal(t, 0, m.Clear(month))
	}
	assert.Equal(t, 1, m.NOffers())
	assert.Equal(t, 1, o.ListedAt, "listing time is kept for days-on-market accounting")

	// When it finally sells, the full wait shows up in the statistic.
	before := m.Stats.AverageDaysOnMarket()
	buyer := &stubParty{id: 2}
	m.Bid(buyer, 200000)
	require.Equal(t, 1, m.Clear(13))
	assert.Greater(t, m.Stats.AverageDaysOnMarket(), before)
}

func TestStatsEndOfMonthFoldsPrices(t *testing.T) {
	cfg := testConfig(t)
	s := newStats(KindSale, cfg)

	ref := s.AveragePrice(10)
	s.recordTransaction(10, ref*2, 0)
	s.EndOfMonth()

	assert.Greater(t, s.AveragePrice(10), ref)
	assert.Equal(t, 0, s.TransactionsThisMonth())
	assert.Equal(t, 1, s.TotalTransactions())
	assert.Greater(t, s.HousePriceIndex(), 1.0)
}

func TestHousePriceAppreciationNeedsFullWindow(t *testing.T) {
	cfg := testConfig(t)
	s := newStats(KindSale, cfg)

	for i := 0; i < cfg.Market.HPIRecordMonths-1; i++ {
		s.EndOfMonth()
	}
	assert.Equal(t, 0.0, s.HousePriceAppreciation())

	// Rising prices every month turn appreciation positive once the
	// window has filled.
	for i := 0; i < cfg.Market.HPIRecordMonths+1; i++ {
		s.recordTransaction(10, s.AveragePrice(10)*1.5, 0)
		s.EndOfMonth()
	}
	assert.Greater(t, s.HousePriceAppreciation(), 0.0)
}

// richParty is a stubParty with financial state visible to the recorder.
type richParty struct {
	stubParty
	balance float64
	income  float64
}

func (p *richParty) BankBalance() float64            { return p.balance }
func (p *richParty) AnnualGrossTotalIncome() float64 { return p.income }

type txLog struct {
	records []TransactionRecord
}

func (l *txLog) RecordTransaction(rec TransactionRecord) { l.records = append(l.records, rec) }

func TestTransactionRecordCarriesBothPartiesFinancials(t *testing.T) {
	log := &txLog{}
	m := NewSaleMarket(0, testConfig(t), entropy.NewSource(7), log)
	seller := &richParty{stubParty: stubParty{id: 1}, balance: 12000, income: 28000}
	buyer := &richParty{stubParty: stubParty{id: 2}, balance: 40000, income: 36000}
	h := house(1, 10, seller)

	m.Offer(h, 100000)
	m.Bid(buyer, 100000)
	require.Equal(t, 1, m.Clear(1))

	require.Len(t, log.records, 1)
	rec := log.records[0]
	assert.Equal(t, buyer.id, rec.BuyerID)
	assert.Equal(t, seller.id, rec.SellerID)
	assert.Equal(t, 40000.0, rec.BuyerBankBalance)
	assert.Equal(t, 36000.0, rec.BuyerAnnualIncome)
	assert.Equal(t, 12000.0, rec.SellerBankBalance)
	assert.Equal(t, 28000.0, rec.SellerAnnualIncome)
}

func TestTransactionRecordZeroFinancialsForPlainSeller(t *testing.T) {
	log := &txLog{}
	m := NewSaleMarket(0, testConfig(t), entropy.NewSource(7), log)
	seller := &stubParty{id: 1}
	buyer := &richParty{stubParty: stubParty{id: 2}, balance: 40000, income: 36000}
	h := house(1, 10, seller)

	m.Offer(h, 100000)
	m.Bid(buyer, 100000)
	require.Equal(t, 1, m.Clear(1))

	require.Len(t, log.records, 1)
	rec := log.records[0]
	assert.Equal(t, 0.0, rec.SellerBankBalance)
	assert.Equal(t, 0.0, rec.SellerAnnualIncome)
}
