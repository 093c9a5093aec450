package store

import (
	"sync"

	"github.com/clubexchange/clubexchange/internal/domain"
)

// ListingStore tracks the set of live tradable symbols with a
// bidirectional symbol ↔ owner index. An owner holds at most one
// listing; a listing with an empty owner is valid (admin-created,
// pending claim).
type ListingStore struct {
	mu      sync.RWMutex
	owners  map[string]string // symbol → owner ("" when unowned)
	symbols map[string]string // owner → symbol
}

// NewListingStore creates an empty ListingStore.
func NewListingStore() *ListingStore {
	return &ListingStore{
		owners:  make(map[string]string),
		symbols: make(map[string]string),
	}
}

// Create adds a listing. It returns domain.ErrDuplicateSymbol if the
// symbol is already listed and domain.ErrDuplicateOwner if the owner
// already has a listing. An empty owner skips the owner index.
func (s *ListingStore) Create(symbol, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.owners[symbol]; exists {
		return domain.ErrDuplicateSymbol
	}
	if owner != "" {
		if _, exists := s.symbols[owner]; exists {
			return domain.ErrDuplicateOwner
		}
		s.symbols[owner] = symbol
	}
	s.owners[symbol] = owner
	return nil
}

// Remove delists a symbol and clears both indexes. It returns
// domain.ErrUnknownSymbol if the symbol is not listed.
func (s *ListingStore) Remove(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.owners[symbol]
	if !ok {
		return domain.ErrUnknownSymbol
	}
	delete(s.owners, symbol)
	if owner != "" {
		delete(s.symbols, owner)
	}
	return nil
}

// Exists reports whether a symbol is listed.
func (s *ListingStore) Exists(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.owners[symbol]
	return ok
}

// OwnerOf returns the owner of a listed symbol. The owner may be empty
// for admin-created listings. It returns domain.ErrUnknownSymbol if the
// symbol is not listed.
func (s *ListingStore) OwnerOf(symbol string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.owners[symbol]
	if !ok {
		return "", domain.ErrUnknownSymbol
	}
	return owner, nil
}

// SymbolOf returns the symbol owned by the given owner, or false when
// the owner has no listing.
func (s *ListingStore) SymbolOf(owner string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sym, ok := s.symbols[owner]
	return sym, ok
}

// Count returns the number of live listings. Decay threshold
// comparisons are based on this value.
func (s *ListingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.owners)
}

// Symbols returns all listed symbols in unspecified order.
func (s *ListingStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.owners))
	for sym := range s.owners {
		out = append(out, sym)
	}
	return out
}

// Snapshot returns a copy of the symbol → owner map for the
// persistence layer.
func (s *ListingStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.owners))
	for sym, owner := range s.owners {
		out[sym] = owner
	}
	return out
}

// Restore replaces the store contents with a loaded snapshot. When two
// symbols claim the same owner, the first one restored keeps the owner
// index entry; the duplicate is restored unowned.
func (s *ListingStore) Restore(owners map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.owners = make(map[string]string, len(owners))
	s.symbols = make(map[string]string, len(owners))
	for sym, owner := range owners {
		if owner != "" {
			if _, taken := s.symbols[owner]; taken {
				owner = ""
			} else {
				s.symbols[owner] = sym
			}
		}
		s.owners[sym] = owner
	}
}
