package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/clubexchange/clubexchange/internal/ledger"
)

const (
	marketFile   = "market.json"
	listingsFile = "listings.json"
	ledgerFile   = "ledger.json"
)

// Store reads and writes JSON snapshot files under a data directory.
// Loads tolerate missing or corrupt files by reporting no snapshot, so
// callers regenerate fresh state instead of crashing at startup. Writes
// go through a temp file and rename.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex // serializes file writes
}

// NewStore creates a Store rooted at dir, creating the directory if
// needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// marketSnapshot is the on-disk shape of the price store.
type marketSnapshot struct {
	Prices  map[string]float64   `json:"stock_prices"`
	History map[string][]float64 `json:"price_history"`
}

// LoadMarket returns the persisted prices and histories. ok is false
// when no usable snapshot exists.
func (s *Store) LoadMarket() (map[string]float64, map[string][]float64, bool) {
	var snap marketSnapshot
	if !s.load(marketFile, &snap) {
		return nil, nil, false
	}
	if snap.Prices == nil || snap.History == nil {
		s.logger.Warn("market snapshot missing required fields, regenerating",
			slog.String("file", marketFile))
		return nil, nil, false
	}
	return snap.Prices, snap.History, true
}

// SaveMarket persists the price store snapshot.
func (s *Store) SaveMarket(prices map[string]float64, history map[string][]float64) error {
	return s.save(marketFile, marketSnapshot{Prices: prices, History: history})
}

// LoadListings returns the persisted symbol → owner map. ok is false
// when no usable snapshot exists.
func (s *Store) LoadListings() (map[string]string, bool) {
	var owners map[string]string
	if !s.load(listingsFile, &owners) || owners == nil {
		return nil, false
	}
	return owners, true
}

// SaveListings persists the listing registry snapshot.
func (s *Store) SaveListings(owners map[string]string) error {
	return s.save(listingsFile, owners)
}

// LoadLedger returns the persisted user accounts. ok is false when no
// usable snapshot exists.
func (s *Store) LoadLedger() (map[string]ledger.Account, bool) {
	var accounts map[string]ledger.Account
	if !s.load(ledgerFile, &accounts) || accounts == nil {
		return nil, false
	}
	return accounts, true
}

// SaveLedger persists the user accounts snapshot.
func (s *Store) SaveLedger(accounts map[string]ledger.Account) error {
	return s.save(ledgerFile, accounts)
}

// load reads and decodes one snapshot file. It returns false for a
// missing or corrupt file.
func (s *Store) load(name string, v any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("snapshot unreadable, regenerating",
				slog.String("file", name), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("snapshot corrupt, regenerating",
			slog.String("file", name), slog.String("error", err.Error()))
		return false
	}
	return true
}

// save encodes v and atomically replaces the snapshot file.
func (s *Store) save(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
