package engine

import (
	"context"
	"log/slog"
	"time"
)

// MarketTicker drives scheduled market updates: it invokes the engine's
// Tick at a fixed interval until its context is cancelled. Overlap with
// a slow save from a prior tick is harmless — ticks serialize on the
// engine lock and saves run outside it.
type MarketTicker struct {
	interval time.Duration
	market   *MarketEngine
	logger   *slog.Logger
}

// NewMarketTicker creates a MarketTicker.
func NewMarketTicker(interval time.Duration, market *MarketEngine, logger *slog.Logger) *MarketTicker {
	return &MarketTicker{
		interval: interval,
		market:   market,
		logger:   logger,
	}
}

// Start launches the background tick goroutine. It stops when ctx is
// cancelled.
func (t *MarketTicker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		t.logger.Info("market ticker started", slog.Duration("interval", t.interval))
		for {
			select {
			case <-ctx.Done():
				t.logger.Info("market ticker stopped")
				return
			case <-ticker.C:
				t.market.Tick()
			}
		}
	}()
}
