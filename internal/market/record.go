package market

import "github.com/talgya/housesim/internal/housing"

// TransactionRecord is the micro-data emitted for every cleared
// transaction, sale or rental.
type TransactionRecord struct {
	Month    int
	Kind     Kind
	Region   int
	HouseID  housing.HouseID
	Quality  int
	ListedAt int

	InitialPrice float64
	Price        float64
	BidPrice     float64

	BuyerID  housing.HouseholdID
	SellerID housing.HouseholdID

	BuyerBankBalance  float64
	BuyerAnnualIncome float64

	// Zero when the seller is the construction sector.
	SellerBankBalance  float64
	SellerAnnualIncome float64

	// Mortgage terms, zero for rentals and cash purchases.
	MortgagePrincipal   float64
	MortgageDownPayment float64
}

// Recorder receives per-transaction micro-data. Implementations must not
// retain the record past the call.
type Recorder interface {
	RecordTransaction(rec TransactionRecord)
}
