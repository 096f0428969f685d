// Package persistence provides the SQLite micro-data recorder: every
// cleared transaction, approved loan, and monthly indicator row of a run,
// keyed by a run id.
package persistence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/housesim/internal/bank"
	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/engine"
	"github.com/talgya/housesim/internal/market"
)

// flushThreshold is the buffered row count that triggers a write.
const flushThreshold = 2048

// DB wraps a SQLite connection holding the run's micro-data.
type DB struct {
	conn  *sqlx.DB
	runID string

	transactions []market.TransactionRecord
	loans        []bank.LoanRecord
	indicators   []engine.IndicatorRecord
}

// Open opens or creates the database at path, migrates the schema, and
// registers a new run row for this configuration.
func Open(path string, cfg *config.Config) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, runID: uuid.NewString()}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := db.registerRun(cfg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	slog.Info("micro-data recording enabled", "path", path, "run", db.runID)
	return db, nil
}

// RunID returns the identifier tagging every row of this run.
func (db *DB) RunID() string { return db.runID }

// Close flushes any buffered rows and closes the connection.
func (db *DB) Close() error {
	if err := db.Flush(); err != nil {
		slog.Error("flush on close failed", "error", err)
	}
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		months INTEGER NOT NULL,
		regions INTEGER NOT NULL,
		target_population INTEGER NOT NULL,
		config_digest TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		kind TEXT NOT NULL,
		region INTEGER NOT NULL,
		house_id INTEGER NOT NULL,
		quality INTEGER NOT NULL,
		listed_at INTEGER NOT NULL,
		initial_price REAL NOT NULL,
		price REAL NOT NULL,
		bid_price REAL NOT NULL,
		buyer_id INTEGER NOT NULL,
		seller_id INTEGER NOT NULL,
		buyer_bank_balance REAL NOT NULL,
		buyer_annual_income REAL NOT NULL,
		seller_bank_balance REAL NOT NULL,
		seller_annual_income REAL NOT NULL,
		mortgage_principal REAL NOT NULL,
		mortgage_down_payment REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		borrower_id INTEGER NOT NULL,
		price REAL NOT NULL,
		principal REAL NOT NULL,
		down_payment REAL NOT NULL,
		monthly_payment REAL NOT NULL,
		ltv REAL NOT NULL,
		itv REAL NOT NULL,
		lti REAL NOT NULL,
		is_home INTEGER NOT NULL,
		is_first_time_buyer INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS indicators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		region INTEGER NOT NULL,
		house_price_index REAL NOT NULL,
		rental_price_index REAL NOT NULL,
		avg_days_on_market REAL NOT NULL,
		sale_volume INTEGER NOT NULL,
		rental_volume INTEGER NOT NULL,
		population INTEGER NOT NULL,
		homeless INTEGER NOT NULL,
		renting INTEGER NOT NULL,
		owner_occupiers INTEGER NOT NULL,
		investors INTEGER NOT NULL,
		bankruptcies INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_run_month ON transactions(run_id, month);
	CREATE INDEX IF NOT EXISTS idx_loans_run_month ON loans(run_id, month);
	CREATE INDEX IF NOT EXISTS idx_indicators_run_month ON indicators(run_id, month);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) registerRun(cfg *config.Config) error {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%+v", cfg)))
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, started_at, seed, months, regions, target_population, config_digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		db.runID, time.Now().UTC().Format(time.RFC3339),
		cfg.Simulation.Seed, cfg.Simulation.Months, cfg.Simulation.Regions,
		cfg.Simulation.TargetPopulation, hex.EncodeToString(digest[:8]),
	)
	return err
}

// RecordTransaction buffers one cleared sale or rental.
func (db *DB) RecordTransaction(rec market.TransactionRecord) {
	db.transactions = append(db.transactions, rec)
	db.maybeFlush()
}

// RecordLoan buffers one approved mortgage.
func (db *DB) RecordLoan(rec bank.LoanRecord) {
	db.loans = append(db.loans, rec)
	db.maybeFlush()
}

// RecordIndicators buffers one region's monthly aggregates.
func (db *DB) RecordIndicators(rec engine.IndicatorRecord) {
	db.indicators = append(db.indicators, rec)
	db.maybeFlush()
}

func (db *DB) maybeFlush() {
	if len(db.transactions)+len(db.loans)+len(db.indicators) >= flushThreshold {
		if err := db.Flush(); err != nil {
			slog.Error("micro-data flush failed", "error", err)
		}
	}
}

// Flush writes all buffered rows in one transaction.
func (db *DB) Flush() error {
	if len(db.transactions) == 0 && len(db.loans) == 0 && len(db.indicators) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := db.flushTransactions(tx); err != nil {
		return err
	}
	if err := db.flushLoans(tx); err != nil {
		return err
	}
	if err := db.flushIndicators(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.transactions = db.transactions[:0]
	db.loans = db.loans[:0]
	db.indicators = db.indicators[:0]
	return nil
}

func (db *DB) flushTransactions(tx *sqlx.Tx) error {
	if len(db.transactions) == 0 {
		return nil
	}
	stmt, err := tx.Preparex(`INSERT INTO transactions
		(run_id, month, kind, region, house_id, quality, listed_at,
		 initial_price, price, bid_price, buyer_id, seller_id,
		 buyer_bank_balance, buyer_annual_income,
		 seller_bank_balance, seller_annual_income,
		 mortgage_principal, mortgage_down_payment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range db.transactions {
		_, err := stmt.Exec(
			db.runID, r.Month, r.Kind.String(), r.Region, r.HouseID, r.Quality, r.ListedAt,
			r.InitialPrice, r.Price, r.BidPrice, r.BuyerID, r.SellerID,
			r.BuyerBankBalance, r.BuyerAnnualIncome,
			r.SellerBankBalance, r.SellerAnnualIncome,
			r.MortgagePrincipal, r.MortgageDownPayment,
		)
		if err != nil {
			return fmt.Errorf("insert transaction house %d: %w", r.HouseID, err)
		}
	}
	return nil
}

func (db *DB) flushLoans(tx *sqlx.Tx) error {
	if len(db.loans) == 0 {
		return nil
	}
	stmt, err := tx.Preparex(`INSERT INTO loans
		(run_id, month, borrower_id, price, principal, down_payment,
		 monthly_payment, ltv, itv, lti, is_home, is_first_time_buyer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range db.loans {
		_, err := stmt.Exec(
			db.runID, r.Month, r.BorrowerID, r.Price, r.Principal, r.DownPayment,
			r.MonthlyPayment, r.LTV, r.ITV, r.LTI, boolInt(r.IsHome), boolInt(r.IsFirstTimeBuyer),
		)
		if err != nil {
			return fmt.Errorf("insert loan borrower %d: %w", r.BorrowerID, err)
		}
	}
	return nil
}

func (db *DB) flushIndicators(tx *sqlx.Tx) error {
	if len(db.indicators) == 0 {
		return nil
	}
	stmt, err := tx.Preparex(`INSERT INTO indicators
		(run_id, month, region, house_price_index, rental_price_index,
		 avg_days_on_market, sale_volume, rental_volume,
		 population, homeless, renting, owner_occupiers, investors, bankruptcies)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range db.indicators {
		_, err := stmt.Exec(
			db.runID, r.Month, r.Region, r.HousePriceIndex, r.RentalPriceIndex,
			r.AvgDaysOnMarket, r.SaleVolume, r.RentalVolume,
			r.Population, r.Homeless, r.Renting, r.OwnerOccupiers, r.Investors, r.Bankruptcies,
		)
		if err != nil {
			return fmt.Errorf("insert indicators month %d region %d: %w", r.Month, r.Region, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
