// Package bank implements mortgage underwriting. A single bank per run
// prices every loan at the same fixed rate and caps the affordable house
// price four ways: loan-to-value, income-to-value, affordability of the
// monthly payment, and loan-to-income.
package bank

import (
	"math"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/housing"
)

// Borrower is the view of a household the bank underwrites against.
type Borrower interface {
	PartyID() housing.HouseholdID
	BankBalance() float64
	AnnualGrossTotalIncome() float64
	// MonthlyDisposableIncome is net monthly income after essential
	// consumption and existing payment obligations.
	MonthlyDisposableIncome() float64
}

// Bank is the sole mortgage lender. Safe for single-threaded simulation
// use only.
type Bank struct {
	cfg *config.Config

	monthlyRate float64
	// k is the monthly amortization factor: the payment per unit of
	// principal on a fully amortizing loan.
	k float64

	Stats    *Stats
	recorder LoanRecorder
}

// New builds the bank. rec may be nil when micro-data recording is
// disabled.
func New(cfg *config.Config, rec LoanRecorder) *Bank {
	r := cfg.Bank.InterestRate / 12.0
	n := float64(cfg.Derived.NPayments)
	k := r / (1.0 - math.Pow(1.0+r, -n))
	return &Bank{
		cfg:         cfg,
		monthlyRate: r,
		k:           k,
		Stats:       newStats(cfg),
		recorder:    rec,
	}
}

// MonthlyPaymentFactor returns the payment per unit of principal.
func (b *Bank) MonthlyPaymentFactor() float64 { return b.k }

// MonthlyInterestRate returns the fixed per-month mortgage rate.
func (b *Bank) MonthlyInterestRate() float64 { return b.monthlyRate }

func (b *Bank) haircut(isHome, isFirstTimeBuyer bool) float64 {
	switch {
	case !isHome:
		return b.cfg.Bank.HaircutBTL
	case isFirstTimeBuyer:
		return b.cfg.Bank.HaircutFTB
	default:
		return b.cfg.Bank.HaircutHome
	}
}

// MinDownPayment returns the smallest down payment the LTV haircut allows
// at this price.
func (b *Bank) MinDownPayment(price float64, isHome, isFirstTimeBuyer bool) float64 {
	return b.haircut(isHome, isFirstTimeBuyer) * price
}

// MaxMortgagePrice returns the highest house price the bank will finance
// for this borrower, floored to the cent. The binding constraint is the
// tightest of four: the down payment must cover the LTV haircut, annual
// income must be at least MinITV of the price, the monthly payment must
// fit within disposable income, and the loan may not exceed MaxLTI annual
// incomes.
func (b *Bank) MaxMortgagePrice(borrower Borrower, isHome, isFirstTimeBuyer bool) float64 {
	theta := b.haircut(isHome, isFirstTimeBuyer)
	balance := borrower.BankBalance()
	income := borrower.AnnualGrossTotalIncome()

	ltvMax := balance / theta
	itvMax := income / b.cfg.Bank.MinITV
	pdiMax := balance + math.Max(0, borrower.MonthlyDisposableIncome())/b.k
	ltiMax := income * b.cfg.Bank.MaxLTI / (1.0 - theta)

	m := math.Min(math.Min(ltvMax, itvMax), math.Min(pdiMax, ltiMax))
	return math.Floor(m*100.0) / 100.0
}

// RequestLoan underwrites a purchase at price with the given down payment.
// It re-checks the caps against the borrower's current state, so a bid
// approved earlier in the step can still be declined at completion if the
// borrower's finances have deteriorated. On approval it returns a fully
// amortizing agreement; the borrower is responsible for debiting the down
// payment.
func (b *Bank) RequestLoan(borrower Borrower, price, downPayment float64, isHome, isFirstTimeBuyer bool, month int) (*housing.MortgageAgreement, bool) {
	if downPayment > borrower.BankBalance() || downPayment < 0 || price <= 0 {
		return nil, false
	}
	if price > b.MaxMortgagePrice(borrower, isHome, isFirstTimeBuyer) {
		return nil, false
	}
	principal := price - downPayment
	if principal < 0 {
		principal = 0
	}
	theta := b.haircut(isHome, isFirstTimeBuyer)
	if principal > (1.0-theta)*price {
		return nil, false
	}

	agreement := &housing.MortgageAgreement{
		Payment:             principal * b.k,
		NPayments:           b.cfg.Derived.NPayments,
		Principal:           principal,
		MonthlyInterestRate: b.monthlyRate,
		DownPayment:         downPayment,
		PurchasePrice:       price,
		IsHome:              isHome,
		IsFirstTimeBuyer:    isFirstTimeBuyer,
	}

	income := borrower.AnnualGrossTotalIncome()
	b.Stats.recordLoan(principal, principal/price, income/price, principal/income, isFirstTimeBuyer, agreement.Payment, borrower.MonthlyDisposableIncome())
	if b.recorder != nil {
		b.recorder.RecordLoan(LoanRecord{
			Month:            month,
			BorrowerID:       borrower.PartyID(),
			Price:            price,
			Principal:        principal,
			DownPayment:      downPayment,
			MonthlyPayment:   agreement.Payment,
			LTV:              principal / price,
			ITV:              income / price,
			LTI:              principal / income,
			IsHome:           isHome,
			IsFirstTimeBuyer: isFirstTimeBuyer,
		})
	}
	return agreement, true
}

// LoanRecord is the micro-data emitted for every approved mortgage.
type LoanRecord struct {
	Month            int
	BorrowerID       housing.HouseholdID
	Price            float64
	Principal        float64
	DownPayment      float64
	MonthlyPayment   float64
	LTV              float64
	ITV              float64
	LTI              float64
	IsHome           bool
	IsFirstTimeBuyer bool
}

// LoanRecorder receives per-loan micro-data.
type LoanRecorder interface {
	RecordLoan(rec LoanRecord)
}
