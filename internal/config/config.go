// Package config defines the typed configuration for the housing-market
// simulation and provides validation and derived-parameter helpers.
package config

import (
	"fmt"
	"math"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by HOUSESIM_* environment
// variables. All values are validated once at load time; the simulation
// core treats them as immutable for the whole run.
type Config struct {
	Simulation   SimulationConfig   `toml:"simulation"`
	Market       MarketConfig       `toml:"market"`
	Bank         BankConfig         `toml:"bank"`
	Household    HouseholdConfig    `toml:"household"`
	Construction ConstructionConfig `toml:"construction"`
	Demographics DemographicsConfig `toml:"demographics"`
	Recording    RecordingConfig    `toml:"recording"`
	Server       ServerConfig       `toml:"server"`
	LogLevel     string             `toml:"log_level"`

	// Derived holds parameters computed from the above; populated by
	// Validate and never read from file.
	Derived DerivedParams `toml:"-"`
}

// SimulationConfig holds run-control parameters.
type SimulationConfig struct {
	Seed             int64 `toml:"seed"`
	Months           int   `toml:"months"`
	Regions          int   `toml:"regions"`
	TargetPopulation int   `toml:"target_population"` // per region
	NQuality         int   `toml:"n_quality"`         // number of house quality bands
}

// MarketConfig holds housing-market clearing and statistics parameters.
type MarketConfig struct {
	BidUp              float64 `toml:"bid_up"`               // smallest bid/ask ratio that triggers a gazump
	AveragePriceDecay  float64 `toml:"average_price_decay"`  // per-transaction EMA decay for sold prices
	ReferencePriceMin  float64 `toml:"reference_price_min"`  // reference sale price of the lowest quality band
	ReferencePriceMax  float64 `toml:"reference_price_max"`  // reference sale price of the highest quality band
	RentGrossYield     float64 `toml:"rent_gross_yield"`     // initial gross rental yield
	InitialDaysOnMkt   float64 `toml:"initial_days_on_mkt"`  // seed value for days-on-market EMAs
	HPIRecordMonths    int     `toml:"hpi_record_months"`    // ring-buffer length for appreciation
}

// BankConfig holds mortgage-underwriting parameters.
type BankConfig struct {
	HaircutFTB            float64 `toml:"haircut_ftb"`  // first-time-buyer LTV haircut
	HaircutHome           float64 `toml:"haircut_home"` // owner-occupier LTV haircut
	HaircutBTL            float64 `toml:"haircut_btl"`  // buy-to-let LTV haircut
	MinITV                float64 `toml:"min_itv"`      // minimum income-to-value ratio
	MaxLTI                float64 `toml:"max_lti"`      // loan-to-income cap
	MortgageDurationYears int     `toml:"mortgage_duration_years"`
	InterestRate          float64 `toml:"interest_rate"` // annual mortgage interest rate
	StatsDecay            float64 `toml:"stats_decay"`   // decay for LTV/ITV/LTI histograms
	AffordabilityDecay    float64 `toml:"affordability_decay"`
}

// HouseholdConfig holds household income, consumption, and behaviour
// parameters.
type HouseholdConfig struct {
	// Income and consumption. Employment income follows a hump-shaped age
	// profile with a log-normal spread across income percentiles.
	IncomeLogMedian              float64 `toml:"income_log_median"`    // ln of annual income at the peak age, median percentile
	IncomeLogSigma               float64 `toml:"income_log_sigma"`     // percentile spread in log space
	IncomePeakAge                float64 `toml:"income_peak_age"`      // years
	IncomeAgeCurvature           float64 `toml:"income_age_curvature"` // log-income falloff per squared year from peak
	ReturnOnFinancialWealth      float64 `toml:"return_on_financial_wealth"` // monthly
	IncomeSupport                float64 `toml:"income_support"`             // monthly government support floor
	EssentialConsumptionFraction float64 `toml:"essential_consumption_fraction"`
	ConsumptionFraction          float64 `toml:"consumption_fraction"` // of balance above desired buffer

	// Tenancy.
	TenancyLengthAverage int `toml:"tenancy_length_average"` // months
	TenancyLengthEpsilon int `toml:"tenancy_length_epsilon"` // uniform noise half-width, months

	// Buy-to-let.
	PInvestor             float64 `toml:"p_investor"`              // prior probability of being an investor
	MinInvestorPercentile float64 `toml:"min_investor_percentile"` // income percentile gate
	MaxBTLProperties      int     `toml:"max_btl_properties"`      // upper bound of the desired-portfolio draw
	BTLChoiceIntensity    float64 `toml:"btl_choice_intensity"`    // intensity of choice on yield trend
	BTLMinBankBalance     float64 `toml:"btl_min_bank_balance"`    // fraction of desired buffer needed to invest

	// Sale listing.
	SaleMarkup           float64 `toml:"sale_markup"`
	SaleWeightDaysOnMkt  float64 `toml:"sale_weight_days_on_mkt"`
	SaleEpsilon          float64 `toml:"sale_epsilon"`
	PSalePriceReduce     float64 `toml:"p_sale_price_reduce"` // monthly repricing probability
	ReductionMu          float64 `toml:"reduction_mu"`        // log of percentage reduction
	ReductionSigma       float64 `toml:"reduction_sigma"`
	HoldPeriodYears      float64 `toml:"hold_period_years"` // average owner-occupier tenure

	// Purchase bidding.
	BuyScale     float64 `toml:"buy_scale"` // annual salaries a buyer will spend
	BuyWeightHPA float64 `toml:"buy_weight_hpa"`
	BuyEpsilon   float64 `toml:"buy_epsilon"`

	// Rent bidding and letting.
	DesiredRentIncomeFraction float64 `toml:"desired_rent_income_fraction"`
	RentMarkup                float64 `toml:"rent_markup"`
	RentEpsilon               float64 `toml:"rent_epsilon"`
	RentReduction             float64 `toml:"rent_reduction"` // monthly reduction of unlet asking rents

	// Rent-or-buy decision.
	PsychologicalCostOfRenting float64 `toml:"psychological_cost_of_renting"` // annual
	SensitivityRentOrPurchase  float64 `toml:"sensitivity_rent_or_purchase"`

	// Downpayment.
	DownpaymentFraction        float64 `toml:"downpayment_fraction"` // of bank balance
	DownpaymentFractionEpsilon float64 `toml:"downpayment_fraction_epsilon"`

	// Desired bank balance: exp(alpha*ln(annual income) + beta + epsilon*N).
	DesiredBankBalanceAlpha   float64 `toml:"desired_bank_balance_alpha"`
	DesiredBankBalanceBeta    float64 `toml:"desired_bank_balance_beta"`
	DesiredBankBalanceEpsilon float64 `toml:"desired_bank_balance_epsilon"`
}

// ConstructionConfig holds construction-sector parameters.
type ConstructionConfig struct {
	HousesPerHousehold float64 `toml:"houses_per_household"`
	RepriceFactor      float64 `toml:"reprice_factor"` // monthly multiplier on unsold new builds
}

// DemographicsConfig holds the birth/death scheduler parameters.
type DemographicsConfig struct {
	MonthlyBirthRate float64 `toml:"monthly_birth_rate"` // births per household per month
	AgeAtBirthMin    float64 `toml:"age_at_birth_min"`
	AgeAtBirthMax    float64 `toml:"age_at_birth_max"`
	MortalityScale   float64 `toml:"mortality_scale"` // Gompertz scale (annual)
	MortalityShape   float64 `toml:"mortality_shape"` // Gompertz shape (per year of age)
}

// RecordingConfig holds micro-data recorder parameters.
type RecordingConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// ServerConfig holds the status API parameters.
type ServerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Port     int    `toml:"port"`
	AdminKey string `toml:"admin_key"`
}

// DerivedParams are computed from the configured values once, at load time.
type DerivedParams struct {
	NPayments         int     // mortgage duration in months
	MonthlyPSell      float64 // monthly probability an owner-occupier lists their home
	MarketAvgT        float64 // characteristic transaction count for market averaging
	MarketAvgDecay    float64 // E: per-transaction decay for days-on-market averaging
	YieldDecayShort   float64 // K: decay for the short-term gross-yield EMA
	YieldDecayLong    float64 // KL: decay for the long-term gross-yield EMA
}

// Defaults returns the built-in configuration, calibrated to the reference
// parameter set.
func Defaults() Config {
	return Config{
		Simulation: SimulationConfig{
			Seed:             1,
			Months:           600,
			Regions:          1,
			TargetPopulation: 5000,
			NQuality:         48,
		},
		Market: MarketConfig{
			BidUp:             1.0075,
			AveragePriceDecay: 0.25,
			ReferencePriceMin: 55000,
			ReferencePriceMax: 800000,
			RentGrossYield:    0.05,
			InitialDaysOnMkt:  30,
			HPIRecordMonths:   15,
		},
		Bank: BankConfig{
			HaircutFTB:            0.1,
			HaircutHome:           0.2,
			HaircutBTL:            0.4,
			MinITV:                0.01,
			MaxLTI:                4.5,
			MortgageDurationYears: 25,
			InterestRate:          0.03,
			StatsDecay:            0.9,
			AffordabilityDecay:    math.Exp(-1.0 / 100.0),
		},
		Household: HouseholdConfig{
			IncomeLogMedian:              10.46, // ~35k/year
			IncomeLogSigma:               0.7,
			IncomePeakAge:                48,
			IncomeAgeCurvature:           0.0006,
			ReturnOnFinancialWealth:      0.002,
			IncomeSupport:                360,
			EssentialConsumptionFraction: 0.8,
			ConsumptionFraction:          0.1,
			TenancyLengthAverage:         18,
			TenancyLengthEpsilon:         6,
			PInvestor:                    0.08,
			MinInvestorPercentile:        0.5,
			MaxBTLProperties:             10,
			BTLChoiceIntensity:           50,
			BTLMinBankBalance:            0.75,
			SaleMarkup:                   0.04,
			SaleWeightDaysOnMkt:          0.02,
			SaleEpsilon:                  0.05,
			PSalePriceReduce:             0.06,
			ReductionMu:                  1.6,
			ReductionSigma:               0.62,
			HoldPeriodYears:              11,
			BuyScale:                     4.5,
			BuyWeightHPA:                 0.08,
			BuyEpsilon:                   0.36,
			DesiredRentIncomeFraction:    0.33,
			RentMarkup:                   0.01,
			RentEpsilon:                  0.05,
			RentReduction:                0.05,
			PsychologicalCostOfRenting:   1100,
			SensitivityRentOrPurchase:    1.0 / 2000.0,
			DownpaymentFraction:          0.1,
			DownpaymentFractionEpsilon:   0.0025,
			DesiredBankBalanceAlpha:      4.07,
			DesiredBankBalanceBeta:       -33.1,
			DesiredBankBalanceEpsilon:    0.2,
		},
		Construction: ConstructionConfig{
			HousesPerHousehold: 0.82,
			RepriceFactor:      0.95,
		},
		Demographics: DemographicsConfig{
			MonthlyBirthRate: 0.0012,
			AgeAtBirthMin:    23,
			AgeAtBirthMax:    45,
			MortalityScale:   0.00005,
			MortalityShape:   0.105,
		},
		Recording: RecordingConfig{
			Enabled: true,
			DBPath:  "data/housesim.db",
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

// Validate checks cross-field consistency and fills in Derived. It must be
// called exactly once, after Load; the core never re-validates mid-run.
func (c *Config) Validate() error {
	if c.Simulation.Months <= 0 {
		return fmt.Errorf("simulation.months must be positive, got %d", c.Simulation.Months)
	}
	if c.Simulation.Regions <= 0 {
		return fmt.Errorf("simulation.regions must be positive, got %d", c.Simulation.Regions)
	}
	if c.Simulation.TargetPopulation <= 0 {
		return fmt.Errorf("simulation.target_population must be positive, got %d", c.Simulation.TargetPopulation)
	}
	if c.Simulation.NQuality <= 1 {
		return fmt.Errorf("simulation.n_quality must be at least 2, got %d", c.Simulation.NQuality)
	}
	if c.Market.BidUp < 1 {
		return fmt.Errorf("market.bid_up must be >= 1, got %g", c.Market.BidUp)
	}
	if c.Market.ReferencePriceMin <= 0 || c.Market.ReferencePriceMax <= c.Market.ReferencePriceMin {
		return fmt.Errorf("market reference prices must satisfy 0 < min < max")
	}
	if c.Bank.MinITV <= 0 {
		return fmt.Errorf("bank.min_itv must be positive, got %g", c.Bank.MinITV)
	}
	if c.Bank.MortgageDurationYears <= 0 {
		return fmt.Errorf("bank.mortgage_duration_years must be positive, got %d", c.Bank.MortgageDurationYears)
	}
	for name, h := range map[string]float64{
		"haircut_ftb":  c.Bank.HaircutFTB,
		"haircut_home": c.Bank.HaircutHome,
		"haircut_btl":  c.Bank.HaircutBTL,
	} {
		if h < 0 || h >= 1 {
			return fmt.Errorf("bank.%s must be in [0, 1), got %g", name, h)
		}
	}
	if c.Household.TenancyLengthAverage <= c.Household.TenancyLengthEpsilon {
		return fmt.Errorf("household.tenancy_length_average must exceed its epsilon")
	}
	if c.Household.HoldPeriodYears <= 0 {
		return fmt.Errorf("household.hold_period_years must be positive, got %g", c.Household.HoldPeriodYears)
	}
	if c.Construction.HousesPerHousehold <= 0 {
		return fmt.Errorf("construction.houses_per_household must be positive, got %g", c.Construction.HousesPerHousehold)
	}

	c.Derived = c.deriveParams()
	return nil
}

func (c *Config) deriveParams() DerivedParams {
	t := 0.02 * float64(c.Simulation.TargetPopulation)
	pop := float64(c.Simulation.TargetPopulation)
	return DerivedParams{
		NPayments:       c.Bank.MortgageDurationYears * 12,
		MonthlyPSell:    1.0 / (c.Household.HoldPeriodYears * 12.0),
		MarketAvgT:      t,
		MarketAvgDecay:  math.Exp(-1.0 / t),
		YieldDecayShort: math.Exp(-10000.0 / (pop * 50.0)),
		YieldDecayLong:  math.Exp(-10000.0 / (pop * 50.0 * 200.0)),
	}
}
