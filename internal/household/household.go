// Package household implements the simulation's agent: a household that
// earns income, pays its obligations, manages its property, and drives the
// sale and rental markets through its monthly decisions.
package household

import (
	"log/slog"
	"math"
	"sort"

	"github.com/talgya/housesim/internal/bank"
	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
	"github.com/talgya/housesim/internal/housing"
	"github.com/talgya/housesim/internal/market"
)

// bankruptcyFloor is the balance a bankrupt household is reset to. A cash
// injection recovery policy, not a default model.
const bankruptcyFloor = 1.0

// Deps are the collaborators a household acts through, fixed at
// construction.
type Deps struct {
	Bank   *bank.Bank
	Sale   *market.SaleMarket
	Rental *market.RentalMarket
}

// Household is the agent. It transitions between social housing, renting,
// owner-occupation, and property investment, driven each step by its own
// decisions and by market outcomes.
type Household struct {
	id               housing.HouseholdID
	region           int
	age              float64
	incomePercentile float64

	bankBalance float64

	home  *housing.House // lived-in house, owned or rented; nil in social housing
	owned map[housing.HouseID]*housing.House
	// payments holds the mortgage per owned house plus the rental contract
	// for a rented home, keyed by house.
	payments map[housing.HouseID]housing.PaymentAgreement
	// rents is the monthly rent received per let house.
	rents map[housing.HouseID]float64

	isFirstTimeBuyer bool
	bankrupt         bool // this step

	month int

	cfg       *config.Config
	rng       *entropy.Source
	behaviour *Behaviour
	deps      Deps
}

// New creates a household with the given birth age and income percentile.
// The initial bank balance is the behaviour module's desired buffer at that
// income.
func New(id housing.HouseholdID, region int, age, incomePercentile float64, cfg *config.Config, rng *entropy.Source, deps Deps) *Household {
	h := &Household{
		id:               id,
		region:           region,
		age:              age,
		incomePercentile: incomePercentile,
		owned:            make(map[housing.HouseID]*housing.House),
		payments:         make(map[housing.HouseID]housing.PaymentAgreement),
		rents:            make(map[housing.HouseID]float64),
		isFirstTimeBuyer: true,
		cfg:              cfg,
		rng:              rng,
		behaviour:        newBehaviour(cfg, rng, incomePercentile),
		deps:             deps,
	}
	h.bankBalance = h.behaviour.DesiredBankBalance(h.AnnualGrossTotalIncome())
	return h
}

// PartyID implements the market party contract.
func (h *Household) PartyID() housing.HouseholdID { return h.id }

// Region returns the household's home region.
func (h *Household) Region() int { return h.region }

// Age returns the household's age in years.
func (h *Household) Age() float64 { return h.age }

// IncomePercentile returns the fixed income percentile drawn at birth.
func (h *Household) IncomePercentile() float64 { return h.incomePercentile }

// BankBalance returns the current cash position.
func (h *Household) BankBalance() float64 { return h.bankBalance }

// IsBankrupt reports whether the bankruptcy clamp fired this step.
func (h *Household) IsBankrupt() bool { return h.bankrupt }

// IsInSocialHousing reports whether the household has no home.
func (h *Household) IsInSocialHousing() bool { return h.home == nil }

// IsRenting reports whether the household lives in a house it does not own.
func (h *Household) IsRenting() bool {
	return h.home != nil && h.home.Owner.PartyID() != h.id
}

// IsOwnerOccupier reports whether the household lives in its own house.
func (h *Household) IsOwnerOccupier() bool {
	return h.home != nil && h.home.Owner.PartyID() == h.id
}

// IsFirstTimeBuyer reports whether the household has never owned a home.
func (h *Household) IsFirstTimeBuyer() bool { return h.isFirstTimeBuyer }

// IsPropertyInvestor reports the behaviour module's one-time draw.
func (h *Household) IsPropertyInvestor() bool { return h.behaviour.IsPropertyInvestor() }

// NProperties returns the number of houses owned.
func (h *Household) NProperties() int { return len(h.owned) }

// Home returns the lived-in house, nil in social housing.
func (h *Household) Home() *housing.House { return h.home }

// AnnualGrossEmploymentIncome evaluates the age/percentile income curve,
// floored at the annualized income support level.
func (h *Household) AnnualGrossEmploymentIncome() float64 {
	earned := annualGrossEmploymentIncome(&h.cfg.Household, h.age, h.incomePercentile)
	return math.Max(earned, 12.0*h.cfg.Household.IncomeSupport)
}

// MonthlyGrossRentalIncome sums the rent received across let houses.
func (h *Household) MonthlyGrossRentalIncome() float64 {
	total := 0.0
	for _, r := range h.rents {
		total += r
	}
	return total
}

// AnnualGrossTotalIncome is employment plus rental income plus the return
// on financial wealth.
func (h *Household) AnnualGrossTotalIncome() float64 {
	return h.AnnualGrossEmploymentIncome() +
		12.0*h.MonthlyGrossRentalIncome() +
		12.0*h.cfg.Household.ReturnOnFinancialWealth*h.bankBalance
}

// MonthlyNetTotalIncome is the monthly income credited each step. Taxation
// is not modeled.
func (h *Household) MonthlyNetTotalIncome() float64 {
	return h.AnnualGrossTotalIncome() / 12.0
}

// MonthlyDisposableIncome is net monthly income after essential consumption
// and existing payment obligations. The bank underwrites against it.
func (h *Household) MonthlyDisposableIncome() float64 {
	out := h.cfg.Household.EssentialConsumptionFraction * h.cfg.Household.IncomeSupport
	for _, id := range h.sortedPaymentIDs() {
		out += h.payments[id].MonthlyPayment()
	}
	return h.MonthlyNetTotalIncome() - out
}

// Step runs one simulated month: income, obligations, consumption with the
// bankruptcy clamp, listing management per owned house, then at most one
// market bid.
func (h *Household) Step(month int) {
	h.month = month
	h.age += 1.0 / 12.0
	h.bankrupt = false

	h.bankBalance += h.MonthlyNetTotalIncome()
	h.payObligations()

	desired := h.behaviour.DesiredBankBalance(h.AnnualGrossTotalIncome())
	h.bankBalance -= h.behaviour.DesiredConsumption(h.bankBalance, desired)
	if h.bankBalance < bankruptcyFloor {
		h.bankBalance = bankruptcyFloor
		h.bankrupt = true
	}

	for _, id := range h.sortedOwnedIDs() {
		h.manageHouse(h.owned[id])
	}

	if h.home == nil {
		h.bidForHome()
	} else if h.behaviour.IsPropertyInvestor() {
		h.considerInvestmentBid(desired)
	}
}

// payObligations makes every monthly payment in a stable order. A rental
// contract that matures ends the tenancy; a mortgage that matures with
// principal cleared is dropped.
func (h *Household) payObligations() {
	for _, id := range h.sortedPaymentIDs() {
		pa := h.payments[id]
		h.bankBalance -= pa.MakeMonthlyPayment()
		if pa.RemainingPayments() > 0 {
			continue
		}
		switch a := pa.(type) {
		case *housing.RentalAgreement:
			if h.home != nil && h.home.ID == id {
				h.endTenancy()
			} else {
				delete(h.payments, id)
			}
		case *housing.MortgageAgreement:
			if a.Principal <= 0 {
				delete(h.payments, id)
			} else {
				slog.Error("mortgage matured with outstanding principal",
					"household", h.id, "house", id, "principal", a.Principal)
				delete(h.payments, id)
			}
		}
	}
}

// manageHouse reprices or newly lists one owned house.
func (h *Household) manageHouse(house *housing.House) {
	if so := house.SaleOffer(); so != nil {
		if h.behaviour.DecideToReduceSalePrice() {
			if p := h.behaviour.ReducedSalePrice(so.Price, h.principalOn(house)); p < so.Price {
				h.deps.Sale.UpdateOffer(so, p)
			}
		}
		return
	}

	if h.home != nil && house.ID == h.home.ID {
		if h.behaviour.DecideToSellHome() {
			h.listForSale(house)
		}
		return
	}

	annualRate := 12.0 * h.deps.Bank.MonthlyInterestRate()
	if house.Resident != nil {
		// Let property. Selling a let house is allowed; the buyer evicts.
		if h.behaviour.DecideToSellInvestmentProperty(h.effectiveYield(), annualRate) {
			h.listForSale(house)
		}
		return
	}
	if ro := house.RentalOffer(); ro != nil {
		h.deps.Rental.UpdateOffer(ro, h.behaviour.ReducedRentalPrice(ro.Price))
		return
	}
	// Vacant and unlisted.
	if h.behaviour.DecideToSellInvestmentProperty(h.effectiveYield(), annualRate) {
		h.listForSale(house)
	} else {
		h.listForRent(house)
	}
}

func (h *Household) listForSale(house *housing.House) {
	stats := h.deps.Sale.Stats
	price := h.behaviour.InitialSalePrice(stats.AveragePrice(house.Quality),
		stats.AverageDaysOnMarket(), h.principalOn(house))
	h.deps.Sale.Offer(house, price)
}

func (h *Household) listForRent(house *housing.House) {
	stats := h.deps.Rental.Stats
	rent := h.behaviour.BuyToLetRent(stats.AveragePrice(house.Quality), stats.AverageDaysOnMarket())
	h.deps.Rental.Offer(house, rent)
}

// bidForHome submits the single bid of a homeless household: buy when the
// logistic rent-or-purchase choice favors owning and financing exists,
// rent otherwise.
func (h *Household) bidForHome() {
	hpa := h.deps.Sale.Stats.HousePriceAppreciation()
	maxPrice := h.deps.Bank.MaxMortgagePrice(h, true, h.isFirstTimeBuyer)
	price := math.Min(h.behaviour.DesiredPurchasePrice(h.AnnualGrossTotalIncome(), hpa), maxPrice)
	desiredRent := h.behaviour.DesiredRent(h.MonthlyNetTotalIncome())

	annualMortgageCost := 12.0 * price * h.deps.Bank.MonthlyPaymentFactor()
	if price > 0 && h.behaviour.DecideRentOrPurchase(price, annualMortgageCost, 12.0*desiredRent, hpa) {
		h.deps.Sale.Bid(h, price)
		return
	}
	if desiredRent > 0 {
		h.deps.Rental.Bid(h, desiredRent)
	}
}

// considerInvestmentBid submits a buy-to-let bid when the behaviour module
// wants to grow the portfolio.
func (h *Household) considerInvestmentBid(desiredBalance float64) {
	annualRate := 12.0 * h.deps.Bank.MonthlyInterestRate()
	if !h.behaviour.DecideToBuyInvestmentProperty(h.nInvestmentProperties(),
		h.bankBalance, desiredBalance, h.effectiveYield(), annualRate) {
		return
	}
	if price := h.deps.Bank.MaxMortgagePrice(h, false, false); price > 0 {
		h.deps.Sale.BTLBid(h, price)
	}
}

// effectiveYield folds expected occupancy, the short/long yield trend, and
// price appreciation into the return an investor compares to the mortgage
// rate.
func (h *Household) effectiveYield() float64 {
	r := h.deps.Rental
	long := r.LongTermAvgGrossYield()
	trend := 1.0
	if long > 0 {
		trend = r.AvgSoldGrossYield() / long
	}
	return r.AvgSoldGrossYield()*r.ExpectedOccupancy()*trend +
		h.deps.Sale.Stats.HousePriceAppreciation()
}

func (h *Household) nInvestmentProperties() int {
	n := len(h.owned)
	if h.IsOwnerOccupier() {
		n--
	}
	return n
}

func (h *Household) principalOn(house *housing.House) float64 {
	if m, ok := h.payments[house.ID].(*housing.MortgageAgreement); ok {
		return m.Principal
	}
	return 0
}

// CompleteHousePurchase underwrites and finances a matched sale on the
// buyer's side. It returns ok=false, leaving the household untouched, when
// the loan is declined at completion time.
func (h *Household) CompleteHousePurchase(offer *housing.Offer, price float64, buyToLet bool) (*housing.MortgageAgreement, bool) {
	isHome := !buyToLet
	ftb := isHome && h.isFirstTimeBuyer

	down := math.Max(h.behaviour.DesiredDownPayment(h.bankBalance),
		h.deps.Bank.MinDownPayment(price, isHome, ftb))
	if down > price {
		down = price
	}
	mortgage, ok := h.deps.Bank.RequestLoan(h, price, down, isHome, ftb, h.month)
	if !ok {
		slog.Warn("purchase declined at completion",
			"household", h.id, "house", offer.House.ID, "price", price, "down", down)
		return nil, false
	}

	if isHome && h.IsRenting() {
		h.endTenancy()
	}
	h.bankBalance -= down
	h.payments[offer.House.ID] = mortgage
	if isHome {
		h.isFirstTimeBuyer = false
	}
	return mortgage, true
}

// TakePossession completes the buyer's side after ownership has
// transferred: move in when this is the new home, list for rent otherwise.
func (h *Household) TakePossession(house *housing.House, buyToLet bool) {
	h.owned[house.ID] = house
	if buyToLet || h.home != nil {
		h.listForRent(house)
		return
	}
	h.home = house
	house.Resident = h
}

// CompleteHouseSale credits the price, pays off the mortgage, and tears
// down the seller's bookkeeping. A resident tenant is evicted; selling the
// household's own home leaves it in social housing.
func (h *Household) CompleteHouseSale(offer *housing.Offer, price float64) {
	house := offer.House
	h.bankBalance += price
	if m, ok := h.payments[house.ID].(*housing.MortgageAgreement); ok {
		h.bankBalance -= m.Payoff(h.bankBalance)
		if m.Principal > 0 {
			slog.Warn("sale proceeds short of principal",
				"household", h.id, "house", house.ID, "principal", m.Principal)
		}
	}
	delete(h.payments, house.ID)
	delete(h.owned, house.ID)
	delete(h.rents, house.ID)

	if ro := house.RentalOffer(); ro != nil {
		h.deps.Rental.RemoveOffer(ro)
	}
	if h.home != nil && house.ID == h.home.ID {
		h.home = nil
		house.Resident = nil
		return
	}
	if r := house.Resident; r != nil {
		r.GetEvicted()
	}
}

// CompleteHouseRental establishes the tenant's side of a matched letting.
// Tenancy length is drawn at contract creation.
func (h *Household) CompleteHouseRental(offer *housing.Offer, price float64) {
	house := offer.House
	eps := h.cfg.Household.TenancyLengthEpsilon
	months := h.cfg.Household.TenancyLengthAverage + h.rng.IntBetween(-eps, eps)
	h.payments[house.ID] = &housing.RentalAgreement{Payment: price, NPayments: months}
	h.home = house
	house.Resident = h
}

// CompleteHouseLet establishes the landlord's side. A let house comes off
// the sale market if it was also listed there.
func (h *Household) CompleteHouseLet(offer *housing.Offer, price float64) {
	house := offer.House
	if so := house.SaleOffer(); so != nil {
		h.deps.Sale.RemoveOffer(so)
	}
	h.rents[house.ID] = price
}

// EndOfLettingAgreement is the landlord's notification that a tenant left
// at the natural end of their contract.
func (h *Household) EndOfLettingAgreement(house *housing.House, _ housing.PaymentAgreement) {
	delete(h.rents, house.ID)
}

// GetEvicted is the tenant's side of an unannounced termination: the home
// is vacated with no notification back to the owner.
func (h *Household) GetEvicted() {
	if h.home == nil {
		return
	}
	delete(h.payments, h.home.ID)
	h.home.Resident = nil
	h.home = nil
}

// endTenancy vacates a rented home at the natural end of the contract and
// notifies the landlord.
func (h *Household) endTenancy() {
	home := h.home
	contract := h.payments[home.ID]
	delete(h.payments, home.ID)
	h.home = nil
	home.Resident = nil
	home.Owner.EndOfLettingAgreement(home, contract)
}

// TransferAllWealthTo liquidates the dying household into a beneficiary:
// every listing is withdrawn, tenants are evicted, mortgages are paid down
// from the estate, and ownership moves via InheritHouse. No order book
// entry survives the transfer.
func (h *Household) TransferAllWealthTo(beneficiary *Household) {
	if h.IsRenting() {
		h.endTenancy()
	}
	ids := h.sortedOwnedIDs()
	// The former home transfers first: a homeless beneficiary moves into
	// it rather than into whichever property has the lowest id.
	if h.home != nil {
		if _, owns := h.owned[h.home.ID]; owns {
			front := []housing.HouseID{h.home.ID}
			for _, id := range ids {
				if id != h.home.ID {
					front = append(front, id)
				}
			}
			ids = front
		}
	}
	for _, id := range ids {
		house := h.owned[id]
		if so := house.SaleOffer(); so != nil {
			h.deps.Sale.RemoveOffer(so)
		}
		if ro := house.RentalOffer(); ro != nil {
			h.deps.Rental.RemoveOffer(ro)
		}
		if r := house.Resident; r != nil && r.PartyID() != h.id {
			r.GetEvicted()
		}
		if m, ok := h.payments[id].(*housing.MortgageAgreement); ok {
			h.bankBalance -= m.Payoff(h.bankBalance)
			if m.Principal > 0 {
				// The estate could not cover the loan; the residual is
				// written off rather than passed to the beneficiary.
				slog.Warn("estate short of mortgage principal",
					"household", h.id, "house", id, "principal", m.Principal)
			}
		}
		delete(h.payments, id)
		delete(h.rents, id)
		delete(h.owned, id)
		house.Resident = nil
		house.Owner = beneficiary
		beneficiary.InheritHouse(house)
	}
	h.home = nil
	if h.bankBalance > 0 {
		beneficiary.bankBalance += h.bankBalance
	}
	h.bankBalance = 0
}

// ReleaseEstate winds up a household that dies with no heir: every listing
// is withdrawn, tenants are evicted, mortgages are written off, and the
// houses are returned with owner and resident cleared so the caller can
// rehome them. The bank balance is forfeit.
func (h *Household) ReleaseEstate() []*housing.House {
	if h.IsRenting() {
		h.endTenancy()
	}
	houses := make([]*housing.House, 0, len(h.owned))
	for _, id := range h.sortedOwnedIDs() {
		house := h.owned[id]
		if so := house.SaleOffer(); so != nil {
			h.deps.Sale.RemoveOffer(so)
		}
		if ro := house.RentalOffer(); ro != nil {
			h.deps.Rental.RemoveOffer(ro)
		}
		if r := house.Resident; r != nil && r.PartyID() != h.id {
			r.GetEvicted()
		}
		if m, ok := h.payments[id].(*housing.MortgageAgreement); ok && m.Principal > 0 {
			slog.Warn("heirless estate, mortgage written off",
				"household", h.id, "house", id, "principal", m.Principal)
		}
		delete(h.payments, id)
		delete(h.rents, id)
		delete(h.owned, id)
		house.Resident = nil
		house.Owner = nil
		houses = append(houses, house)
	}
	h.home = nil
	h.bankBalance = 0
	return houses
}

// InheritHouse takes ownership of a bequeathed house: move in when
// homeless, otherwise list it for rent or sale per investor status.
func (h *Household) InheritHouse(house *housing.House) {
	h.owned[house.ID] = house
	switch {
	case h.home == nil:
		h.home = house
		house.Resident = h
	case h.behaviour.IsPropertyInvestor():
		h.listForRent(house)
	default:
		h.listForSale(house)
	}
}

func (h *Household) sortedOwnedIDs() []housing.HouseID {
	ids := make([]housing.HouseID, 0, len(h.owned))
	for id := range h.owned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *Household) sortedPaymentIDs() []housing.HouseID {
	ids := make([]housing.HouseID, 0, len(h.payments))
	for id := range h.payments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
