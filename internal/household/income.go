package household

import (
	"math"

	"github.com/talgya/housesim/internal/config"
)

// annualGrossEmploymentIncome evaluates the age/percentile income curve:
// log income peaks in middle age with a quadratic falloff, and the fixed
// income percentile shifts the whole curve log-normally. Monthly income is
// floored at the government support level elsewhere.
func annualGrossEmploymentIncome(cfg *config.HouseholdConfig, age, incomePercentile float64) float64 {
	d := age - cfg.IncomePeakAge
	mu := cfg.IncomeLogMedian - cfg.IncomeAgeCurvature*d*d
	return math.Exp(mu + cfg.IncomeLogSigma*normInv(incomePercentile))
}

// normInv is the inverse standard normal CDF (Acklam's rational
// approximation, relative error below 1.15e-9 on (0, 1)).
func normInv(p float64) float64 {
	const (
		pLow  = 0.02425
		pHigh = 1 - pLow
	)
	switch {
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((-7.784894002430293e-03*q-3.223964580411365e-01)*q-2.400758277161838e+00)*q-2.549732539343734e+00)*q+4.374664141464968e+00)*q + 2.938163982698783e+00) /
			((((7.784695709041462e-03*q+3.224671290700398e-01)*q+2.445134137142996e+00)*q+3.754408661907416e+00)*q + 1.0)
	case p > pHigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((-7.784894002430293e-03*q-3.223964580411365e-01)*q-2.400758277161838e+00)*q-2.549732539343734e+00)*q+4.374664141464968e+00)*q + 2.938163982698783e+00) /
			((((7.784695709041462e-03*q+3.224671290700398e-01)*q+2.445134137142996e+00)*q+3.754408661907416e+00)*q + 1.0)
	default:
		q := p - 0.5
		r := q * q
		return (((((-3.969683028665376e+01*r+2.209460984245205e+02)*r-2.759285104469687e+02)*r+1.383577518672690e+02)*r-3.066479806614716e+01)*r + 2.506628277459239e+00) * q /
			(((((-5.447609879822406e+01*r+1.615858368580409e+02)*r-1.556989798598866e+02)*r+6.680131188771972e+01)*r-1.328068155288572e+01)*r + 1.0)
	}
}
