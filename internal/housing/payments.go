package housing

// PaymentAgreement is a recurring monthly obligation tied to a house.
// Two variants exist: MortgageAgreement and RentalAgreement. Callers switch
// on the concrete type only when principal-specific behavior is needed.
type PaymentAgreement interface {
	// MonthlyPayment returns the amount due each month.
	MonthlyPayment() float64
	// RemainingPayments returns how many monthly payments are left.
	RemainingPayments() int
	// MakeMonthlyPayment decrements the remaining payment count and returns
	// the amount due. Once the count reaches zero it is a no-op returning 0.
	MakeMonthlyPayment() float64
}

// MortgageAgreement is a fixed-rate repayment mortgage.
type MortgageAgreement struct {
	Payment             float64 // fixed monthly payment
	NPayments           int
	Principal           float64
	MonthlyInterestRate float64
	DownPayment         float64
	PurchasePrice       float64
	IsHome              bool // owner-occupier loan, false for buy-to-let
	IsFirstTimeBuyer    bool
}

func (m *MortgageAgreement) MonthlyPayment() float64 { return m.Payment }

func (m *MortgageAgreement) RemainingPayments() int { return m.NPayments }

// MakeMonthlyPayment pays one installment: interest accrues on the current
// principal, the remainder of the payment amortizes it.
func (m *MortgageAgreement) MakeMonthlyPayment() float64 {
	if m.NPayments <= 0 {
		return 0
	}
	m.NPayments--
	m.Principal -= m.Payment - m.Principal*m.MonthlyInterestRate
	if m.Principal < 0 {
		// Final installment rounding.
		m.Principal = 0
	}
	return m.Payment
}

// Payoff extinguishes as much of the remaining principal as availableFunds
// allows and returns the amount paid. Principal never goes negative; a full
// payoff also zeroes the remaining payment count, marking the contract
// mature.
func (m *MortgageAgreement) Payoff(availableFunds float64) float64 {
	paid := m.Principal
	if availableFunds < paid {
		paid = availableFunds
	}
	if paid < 0 {
		paid = 0
	}
	m.Principal -= paid
	if m.Principal == 0 {
		m.NPayments = 0
	}
	return paid
}

// RentalAgreement is a tenancy contract. No principal, no interest; its
// duration is drawn once at creation and reaching zero remaining payments is
// a natural end of tenancy.
type RentalAgreement struct {
	Payment   float64
	NPayments int
}

func (r *RentalAgreement) MonthlyPayment() float64 { return r.Payment }

func (r *RentalAgreement) RemainingPayments() int { return r.NPayments }

func (r *RentalAgreement) MakeMonthlyPayment() float64 {
	if r.NPayments <= 0 {
		return 0
	}
	r.NPayments--
	return r.Payment
}
