package bank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/housing"
)

type stubBorrower struct {
	id         housing.HouseholdID
	balance    float64
	income     float64
	disposable float64
}

func (b *stubBorrower) PartyID() housing.HouseholdID     { return b.id }
func (b *stubBorrower) BankBalance() float64             { return b.balance }
func (b *stubBorrower) AnnualGrossTotalIncome() float64  { return b.income }
func (b *stubBorrower) MonthlyDisposableIncome() float64 { return b.disposable }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestMaxMortgagePriceIsPure(t *testing.T) {
	b := New(testConfig(t), nil)
	borrower := &stubBorrower{id: 1, balance: 50000, income: 40000, disposable: 1500}

	first := b.MaxMortgagePrice(borrower, true, true)
	second := b.MaxMortgagePrice(borrower, true, true)
	assert.Equal(t, first, second, "unchanged borrower state must give the same cap")
}

func TestMaxMortgagePriceFlooredToCent(t *testing.T) {
	b := New(testConfig(t), nil)
	borrower := &stubBorrower{id: 1, balance: 33333.337, income: 40000, disposable: 1500}

	m := b.MaxMortgagePrice(borrower, true, true)
	assert.Equal(t, math.Floor(m*100)/100, m)
}

func TestMaxMortgagePriceBindingConstraints(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg, nil)

	// A tiny balance makes the LTV haircut binding: price <= balance/theta.
	poor := &stubBorrower{id: 1, balance: 1000, income: 100000, disposable: 5000}
	assert.LessOrEqual(t, b.MaxMortgagePrice(poor, true, true), 1000/cfg.Bank.HaircutFTB)

	// A tiny income makes the LTI cap binding: loan <= MaxLTI * income.
	rich := &stubBorrower{id: 2, balance: 1e9, income: 10000, disposable: 1e6}
	cap := b.MaxMortgagePrice(rich, true, true)
	assert.LessOrEqual(t, (1-cfg.Bank.HaircutFTB)*cap, cfg.Bank.MaxLTI*10000+0.01)
}

// Scenario: balance 50k, income 40k, first-time-buyer haircut 0.1, 200k
// house. The LTI cap allows a loan of at most 4.5*40k = 180k, exactly the
// principal needed with the minimum down payment; approval hinges on every
// cap clearing that bar.
func TestRequestLoanScenario(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg, nil)
	borrower := &stubBorrower{id: 1, balance: 50000, income: 40000, disposable: 2000}

	maxPrice := b.MaxMortgagePrice(borrower, true, true)
	agreement, ok := b.RequestLoan(borrower, 200000, 20000, true, true, 1)
	if 200000 <= maxPrice {
		require.True(t, ok)
		assert.InDelta(t, 180000, agreement.Principal, 1e-9)
		assert.Equal(t, cfg.Derived.NPayments, agreement.NPayments)
		assert.InDelta(t, 180000*b.MonthlyPaymentFactor(), agreement.Payment, 1e-9)
		assert.True(t, agreement.IsFirstTimeBuyer)
	} else {
		require.False(t, ok)
		assert.Nil(t, agreement)
	}
}

func TestRequestLoanRefusals(t *testing.T) {
	b := New(testConfig(t), nil)
	borrower := &stubBorrower{id: 1, balance: 50000, income: 40000, disposable: 2000}

	_, ok := b.RequestLoan(borrower, 60000, 55000, true, true, 1)
	assert.False(t, ok, "down payment above the bank balance must be refused")

	_, ok = b.RequestLoan(borrower, 1e9, 20000, true, true, 1)
	assert.False(t, ok, "price above the caps must be refused")

	_, ok = b.RequestLoan(borrower, -5, 0, true, true, 1)
	assert.False(t, ok)
}

func TestRequestLoanEnforcesHaircut(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg, nil)
	borrower := &stubBorrower{id: 1, balance: 100000, income: 50000, disposable: 2500}

	// Down payment below theta*price leaves the loan above the LTV limit.
	price := 100000.0
	tooSmall := cfg.Bank.HaircutFTB*price - 1000
	_, ok := b.RequestLoan(borrower, price, tooSmall, true, true, 1)
	assert.False(t, ok)

	_, ok = b.RequestLoan(borrower, price, cfg.Bank.HaircutFTB*price, true, true, 1)
	assert.True(t, ok)
}

func TestLoanStatsDecay(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg, nil)
	borrower := &stubBorrower{id: 1, balance: 100000, income: 50000, disposable: 2500}

	_, ok := b.RequestLoan(borrower, 100000, 20000, true, true, 1)
	require.True(t, ok)
	assert.Equal(t, 1, b.Stats.LoansThisMonth())
	assert.InDelta(t, 80000, b.Stats.PrincipalThisMonth(), 1e-9)

	median := b.Stats.LTVQuantile(0.5)
	assert.InDelta(t, 0.8, median, 0.011)

	b.Stats.EndOfMonth()
	assert.Equal(t, 0, b.Stats.LoansThisMonth())
	assert.Equal(t, 1, b.Stats.TotalLoans())
}

type loanLog struct {
	records []LoanRecord
}

func (l *loanLog) RecordLoan(rec LoanRecord) { l.records = append(l.records, rec) }

func TestITVDistribution(t *testing.T) {
	cfg := testConfig(t)
	log := &loanLog{}
	b := New(cfg, log)
	borrower := &stubBorrower{id: 1, balance: 100000, income: 50000, disposable: 2500}

	_, ok := b.RequestLoan(borrower, 100000, 20000, true, true, 1)
	require.True(t, ok)

	// income 50k on a 100k purchase: itv = 0.5.
	assert.InDelta(t, 0.5, b.Stats.ITVQuantile(0.5), 0.011)

	require.Len(t, log.records, 1)
	rec := log.records[0]
	assert.InDelta(t, 0.5, rec.ITV, 1e-9)
	assert.InDelta(t, 0.8, rec.LTV, 1e-9)
	assert.InDelta(t, 1.6, rec.LTI, 1e-9)

	// The histogram decays like the others.
	b.Stats.EndOfMonth()
	assert.InDelta(t, 0.5, b.Stats.ITVQuantile(0.5), 0.011)
}
