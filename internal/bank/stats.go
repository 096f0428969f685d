package bank

import "github.com/talgya/housesim/internal/config"

const (
	ltvBuckets = 101 // percent, 0..100
	itvBuckets = 101 // percent, 0..100
	ltiBuckets = 101 // tenths, 0.0..10.0
)

// Stats tracks the bank's lending distributions as decaying histograms:
// each month the whole histogram is multiplied by StatsDecay, so recent
// cohorts dominate. It also smooths the affordability (payment over
// disposable income) of first-time buyers.
type Stats struct {
	decay            float64
	affordDecay      float64
	ltv              [ltvBuckets]float64
	itv              [itvBuckets]float64
	lti              [ltiBuckets]float64
	ftbAffordability float64

	monthLoans     int
	monthPrincipal float64
	totalLoans     int
	totalPrincipal float64
}

func newStats(cfg *config.Config) *Stats {
	return &Stats{
		decay:       cfg.Bank.StatsDecay,
		affordDecay: cfg.Bank.AffordabilityDecay,
	}
}

func (s *Stats) recordLoan(principal, ltv, itv, lti float64, isFirstTimeBuyer bool, payment, disposable float64) {
	s.ltv[clampBucket(ltv*100.0, ltvBuckets)]++
	s.itv[clampBucket(itv*100.0, itvBuckets)]++
	s.lti[clampBucket(lti*10.0, ltiBuckets)]++
	if isFirstTimeBuyer && disposable > 0 {
		a := payment / disposable
		s.ftbAffordability = s.affordDecay*s.ftbAffordability + (1-s.affordDecay)*a
	}
	s.monthLoans++
	s.monthPrincipal += principal
}

func clampBucket(v float64, n int) int {
	i := int(v)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// EndOfMonth decays the histograms and folds the month's counters into the
// run totals.
func (s *Stats) EndOfMonth() {
	for i := range s.ltv {
		s.ltv[i] *= s.decay
	}
	for i := range s.itv {
		s.itv[i] *= s.decay
	}
	for i := range s.lti {
		s.lti[i] *= s.decay
	}
	s.totalLoans += s.monthLoans
	s.totalPrincipal += s.monthPrincipal
	s.monthLoans = 0
	s.monthPrincipal = 0
}

// LoansThisMonth returns approvals since the last EndOfMonth call.
func (s *Stats) LoansThisMonth() int { return s.monthLoans }

// PrincipalThisMonth returns the principal originated since the last
// EndOfMonth call.
func (s *Stats) PrincipalThisMonth() float64 { return s.monthPrincipal }

// TotalLoans returns approvals over the whole run.
func (s *Stats) TotalLoans() int { return s.totalLoans }

// TotalPrincipal returns principal originated over the whole run.
func (s *Stats) TotalPrincipal() float64 { return s.totalPrincipal }

// FTBAffordability is the smoothed payment-to-disposable-income ratio of
// first-time-buyer loans.
func (s *Stats) FTBAffordability() float64 { return s.ftbAffordability }

// LTVQuantile returns the loan-to-value below which fraction q of the
// decayed loan mass sits, as a ratio in [0, 1].
func (s *Stats) LTVQuantile(q float64) float64 {
	return quantile(s.ltv[:], q) / 100.0
}

// ITVQuantile returns the income-to-value ratio below which fraction q of
// the decayed loan mass sits, as a ratio in [0, 1].
func (s *Stats) ITVQuantile(q float64) float64 {
	return quantile(s.itv[:], q) / 100.0
}

// LTIQuantile returns the loan-to-income below which fraction q of the
// decayed loan mass sits.
func (s *Stats) LTIQuantile(q float64) float64 {
	return quantile(s.lti[:], q) / 10.0
}

func quantile(hist []float64, q float64) float64 {
	total := 0.0
	for _, v := range hist {
		total += v
	}
	if total == 0 {
		return 0
	}
	target := q * total
	cum := 0.0
	for i, v := range hist {
		cum += v
		if cum >= target {
			return float64(i)
		}
	}
	return float64(len(hist) - 1)
}
