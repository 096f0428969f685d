package market

import (
	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/entropy"
)

// SaleMarket is the house purchase market for one region.
type SaleMarket struct {
	*Market
}

// NewSaleMarket builds a sale market. rec may be nil when micro-data
// recording is disabled.
func NewSaleMarket(region int, cfg *config.Config, rng *entropy.Source, rec Recorder) *SaleMarket {
	return &SaleMarket{Market: newMarket(KindSale, region, cfg, rng, rec)}
}
