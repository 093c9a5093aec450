package persist

import (
	"log/slog"

	"github.com/clubexchange/clubexchange/internal/ledger"
	"github.com/clubexchange/clubexchange/internal/store"
)

// Saver snapshots the live stores to disk after a batch of mutations.
// It implements the engine's save hooks. Failures are logged, never
// surfaced: the in-memory state is authoritative and persistence is
// best-effort catch-up.
type Saver struct {
	files    *Store
	prices   *store.PriceStore
	listings *store.ListingStore
	accounts *ledger.Ledger
	logger   *slog.Logger
}

// NewSaver creates a Saver over the given stores.
func NewSaver(
	files *Store,
	prices *store.PriceStore,
	listings *store.ListingStore,
	accounts *ledger.Ledger,
	logger *slog.Logger,
) *Saver {
	return &Saver{
		files:    files,
		prices:   prices,
		listings: listings,
		accounts: accounts,
		logger:   logger,
	}
}

// SaveMarket persists the current price store snapshot.
func (s *Saver) SaveMarket() {
	prices, history := s.prices.Snapshot()
	if err := s.files.SaveMarket(prices, history); err != nil {
		s.logger.Error("saving market snapshot", slog.String("error", err.Error()))
	}
}

// SaveListings persists the current listing registry snapshot.
func (s *Saver) SaveListings() {
	if err := s.files.SaveListings(s.listings.Snapshot()); err != nil {
		s.logger.Error("saving listings snapshot", slog.String("error", err.Error()))
	}
}

// SaveLedger persists the current user accounts snapshot.
func (s *Saver) SaveLedger() {
	if err := s.files.SaveLedger(s.accounts.Snapshot()); err != nil {
		s.logger.Error("saving ledger snapshot", slog.String("error", err.Error()))
	}
}

// SaveAll persists every snapshot. Used at shutdown.
func (s *Saver) SaveAll() {
	s.SaveMarket()
	s.SaveListings()
	s.SaveLedger()
}
