package store

import (
	"sync"

	"github.com/clubexchange/clubexchange/internal/domain"
)

// PriceStore is the authoritative thread-safe in-memory store for
// per-symbol prices and price histories. The current price and the last
// history entry are updated in the same critical section, so readers
// never observe them disagreeing.
type PriceStore struct {
	mu      sync.RWMutex
	prices  map[string]float64
	history map[string][]float64
}

// NewPriceStore creates an empty PriceStore.
func NewPriceStore() *PriceStore {
	return &PriceStore{
		prices:  make(map[string]float64),
		history: make(map[string][]float64),
	}
}

// Create initializes a symbol with a single-element history. It returns
// domain.ErrDuplicateSymbol if the symbol is already tracked and
// domain.ErrInvalidPrice for a non-positive initial price.
func (s *PriceStore) Create(symbol string, initial float64) error {
	// Round before validating: a sub-cent value would otherwise pass the
	// guard and commit as 0, which is reserved for the bankruptcy sentinel.
	initial = domain.RoundPrice(initial)
	if initial <= 0 {
		return domain.ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.prices[symbol]; exists {
		return domain.ErrDuplicateSymbol
	}
	s.prices[symbol] = initial
	s.history[symbol] = []float64{initial}
	return nil
}

// Current returns the current price for a symbol. It returns
// domain.ErrUnknownSymbol if the symbol is not tracked.
func (s *PriceStore) Current(symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prices[symbol]
	if !ok {
		return 0, domain.ErrUnknownSymbol
	}
	return p, nil
}

// History returns a copy of the price history for a symbol, oldest
// first. It returns domain.ErrUnknownSymbol if the symbol is not tracked.
func (s *PriceStore) History(symbol string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[symbol]
	if !ok {
		return nil, domain.ErrUnknownSymbol
	}
	out := make([]float64, len(h))
	copy(out, h)
	return out, nil
}

// Append commits a new price for a symbol: the value is rounded to 2
// decimal places, set as the current price, and pushed onto the history
// in one atomic step. Append is the only history mutator. It returns
// domain.ErrUnknownSymbol for untracked symbols and
// domain.ErrInvalidPrice for non-positive prices (the bankruptcy
// sentinel is written only by Remove).
func (s *PriceStore) Append(symbol string, newPrice float64) error {
	newPrice = domain.RoundPrice(newPrice)
	if newPrice <= 0 {
		return domain.ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prices[symbol]; !ok {
		return domain.ErrUnknownSymbol
	}
	s.prices[symbol] = newPrice
	s.history[symbol] = append(s.history[symbol], newPrice)
	return nil
}

// Remove delists a symbol. The terminal bankruptcy sentinel is recorded
// on the returned closing history and the symbol is deleted from both
// maps in the same critical section, so no reader ever observes a zero
// current price. It returns domain.ErrUnknownSymbol if the symbol is
// not tracked.
func (s *PriceStore) Remove(symbol string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[symbol]
	if !ok {
		return nil, domain.ErrUnknownSymbol
	}
	closing := make([]float64, len(h), len(h)+1)
	copy(closing, h)
	closing = append(closing, domain.BankruptcySentinel)

	delete(s.prices, symbol)
	delete(s.history, symbol)
	return closing, nil
}

// Symbols returns all tracked symbols in unspecified order.
func (s *PriceStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.prices))
	for sym := range s.prices {
		out = append(out, sym)
	}
	return out
}

// Len returns the number of tracked symbols.
func (s *PriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prices)
}

// Snapshot returns deep copies of the price and history maps for the
// persistence layer.
func (s *PriceStore) Snapshot() (map[string]float64, map[string][]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]float64, len(s.prices))
	for sym, p := range s.prices {
		prices[sym] = p
	}
	history := make(map[string][]float64, len(s.history))
	for sym, h := range s.history {
		hc := make([]float64, len(h))
		copy(hc, h)
		history[sym] = hc
	}
	return prices, history
}

// Restore replaces the store contents with a loaded snapshot. Symbols
// with a non-positive price or an empty history are dropped rather than
// restored, and the last history entry is forced to match the current
// price.
func (s *PriceStore) Restore(prices map[string]float64, history map[string][]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices = make(map[string]float64, len(prices))
	s.history = make(map[string][]float64, len(prices))
	for sym, p := range prices {
		if p <= 0 {
			continue
		}
		h := history[sym]
		if len(h) == 0 {
			h = []float64{p}
		}
		hc := make([]float64, len(h))
		copy(hc, h)
		hc[len(hc)-1] = p
		s.prices[sym] = p
		s.history[sym] = hc
	}
}
