package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/clubexchange/clubexchange/internal/domain"
)

// PositionPurger zeroes every holder's position in a symbol and
// reports what was purged. The ledger implements it; a failure means
// the holdings collaborator is unavailable and bankruptcy must not
// proceed.
type PositionPurger interface {
	PurgePositions(symbol string) (map[string]int64, error)
}

// BankruptcyHandler performs the terminal removal of a listing: holder
// positions are liquidated, the symbol leaves the price store (with its
// terminal sentinel recorded on the closing history) and the listing
// registry, all inside one engine critical section.
type BankruptcyHandler struct {
	market *MarketEngine
	purger PositionPurger
	logger *slog.Logger
}

// NewBankruptcyHandler creates a BankruptcyHandler bound to the market
// engine whose lock it shares.
func NewBankruptcyHandler(market *MarketEngine, purger PositionPurger, logger *slog.Logger) *BankruptcyHandler {
	return &BankruptcyHandler{
		market: market,
		purger: purger,
		logger: logger,
	}
}

// Handle bankrupts a symbol and returns the affected holder IDs,
// sorted, for notification by the presentation layer. If the holdings
// collaborator fails, the whole operation aborts with
// domain.ErrDependencyUnavailable and no state changes: a symbol never
// vanishes from the registry while holders still show a position.
func (b *BankruptcyHandler) Handle(symbol string) ([]string, error) {
	b.market.mu.Lock()

	if !b.market.listings.Exists(symbol) {
		b.market.mu.Unlock()
		return nil, domain.ErrUnknownSymbol
	}

	purged, err := b.purger.PurgePositions(symbol)
	if err != nil {
		b.market.mu.Unlock()
		return nil, fmt.Errorf("liquidating %s: %w", symbol, domain.ErrDependencyUnavailable)
	}

	// A listed symbol normally has a price, but a drifted snapshot can
	// leave it unpriced; the delisting still proceeds.
	if _, err := b.market.prices.Remove(symbol); err != nil {
		b.logger.Warn("bankrupt symbol had no price entry",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
	b.market.listings.Remove(symbol)
	b.market.mu.Unlock()

	if b.market.saver != nil {
		b.market.saver.SaveMarket()
		b.market.saver.SaveListings()
		b.market.saver.SaveLedger()
	}

	holders := make([]string, 0, len(purged))
	for userID := range purged {
		holders = append(holders, userID)
	}
	sort.Strings(holders)

	b.logger.Info("symbol bankrupted",
		slog.String("symbol", symbol),
		slog.Int("holders", len(holders)),
	)
	return holders, nil
}
