// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/talgya/housesim/internal/engine"
	"github.com/talgya/housesim/internal/market"
)

// Server serves simulation state over HTTP.
type Server struct {
	Runner   *engine.Runner
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// The per-region snapshot walks every household; keep it off hot loops.
	regionsLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/regions", RateLimitMiddleware(regionsLimiter, s.handleRegions))
	mux.HandleFunc("/api/v1/market/sale", s.handleSaleMarket)
	mux.HandleFunc("/api/v1/market/rental", s.handleRentalMarket)
	mux.HandleFunc("/api/v1/bank", s.handleBank)

	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins; localhost
// dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no HOUSESIM_SERVER_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sim := s.Runner.Simulation()
	status := map[string]any{
		"name":       "housesim",
		"month":      sim.CurrentMonth(),
		"year":       sim.CurrentMonth() / 12,
		"speed":      s.Runner.Speed(),
		"regions":    len(sim.Regions),
		"population": sim.Stats.Population,
		"houses":     sim.Stats.Houses,
		"hpi":        sim.Stats.HousePriceIndex,
	}
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Runner.Simulation().Stats)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	type regionSummary struct {
		ID             int     `json:"id"`
		Population     int     `json:"population"`
		Houses         int     `json:"houses"`
		Homeless       int     `json:"homeless"`
		Renting        int     `json:"renting"`
		OwnerOccupiers int     `json:"owner_occupiers"`
		SaleListings   int     `json:"sale_listings"`
		RentalListings int     `json:"rental_listings"`
		HPI            float64 `json:"hpi"`
	}

	sim := s.Runner.Simulation()
	out := make([]regionSummary, 0, len(sim.Regions))
	for _, reg := range sim.Regions {
		summary := regionSummary{
			ID:             reg.ID,
			Population:     len(reg.Households),
			Houses:         len(reg.Houses),
			SaleListings:   reg.Sale.NOffers(),
			RentalListings: reg.Rental.NOffers(),
			HPI:            reg.Sale.Stats.HousePriceIndex(),
		}
		for _, h := range reg.Households {
			switch {
			case h.IsInSocialHousing():
				summary.Homeless++
			case h.IsRenting():
				summary.Renting++
			default:
				summary.OwnerOccupiers++
			}
		}
		out = append(out, summary)
	}
	writeJSON(w, out)
}

type marketSummary struct {
	Region            int     `json:"region"`
	Listings          int     `json:"listings"`
	AvgDaysOnMarket   float64 `json:"avg_days_on_market"`
	HPI               float64 `json:"hpi"`
	Appreciation      float64 `json:"appreciation"`
	TotalTransactions int     `json:"total_transactions"`

	// Rental market only.
	GrossYield        *float64 `json:"gross_yield,omitempty"`
	ExpectedOccupancy *float64 `json:"expected_occupancy,omitempty"`
}

func marketSummaryFor(region int, m *market.Market) marketSummary {
	return marketSummary{
		Region:            region,
		Listings:          m.NOffers(),
		AvgDaysOnMarket:   m.Stats.AverageDaysOnMarket(),
		HPI:               m.Stats.HousePriceIndex(),
		Appreciation:      m.Stats.HousePriceAppreciation(),
		TotalTransactions: m.Stats.TotalTransactions(),
	}
}

func (s *Server) handleSaleMarket(w http.ResponseWriter, r *http.Request) {
	sim := s.Runner.Simulation()
	out := make([]marketSummary, 0, len(sim.Regions))
	for _, reg := range sim.Regions {
		out = append(out, marketSummaryFor(reg.ID, reg.Sale.Market))
	}
	writeJSON(w, out)
}

func (s *Server) handleRentalMarket(w http.ResponseWriter, r *http.Request) {
	sim := s.Runner.Simulation()
	out := make([]marketSummary, 0, len(sim.Regions))
	for _, reg := range sim.Regions {
		summary := marketSummaryFor(reg.ID, reg.Rental.Market)
		yield := reg.Rental.AvgSoldGrossYield()
		occupancy := reg.Rental.ExpectedOccupancy()
		summary.GrossYield = &yield
		summary.ExpectedOccupancy = &occupancy
		out = append(out, summary)
	}
	writeJSON(w, out)
}

func (s *Server) handleBank(w http.ResponseWriter, r *http.Request) {
	sim := s.Runner.Simulation()
	stats := sim.Bank.Stats
	writeJSON(w, map[string]any{
		"total_loans":       stats.TotalLoans(),
		"total_principal":   stats.TotalPrincipal(),
		"ftb_affordability": stats.FTBAffordability(),
		"median_ltv":        stats.LTVQuantile(0.5),
		"p90_ltv":           stats.LTVQuantile(0.9),
		"median_itv":        stats.ITVQuantile(0.5),
		"median_lti":        stats.LTIQuantile(0.5),
		"p90_lti":           stats.LTIQuantile(0.9),
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Runner.SetSpeed(req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Runner.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
