package persist

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/clubexchange/clubexchange/internal/ledger"
	"github.com/clubexchange/clubexchange/internal/store"
)

func newPriceStore(t *testing.T) *store.PriceStore {
	t.Helper()
	s := store.NewPriceStore()
	if err := s.Create("$ABC", 85); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func newListingStore(t *testing.T) *store.ListingStore {
	t.Helper()
	s := store.NewListingStore()
	if err := s.Create("$ABC", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestStore_MarketRoundTrip(t *testing.T) {
	s := newTestStore(t)

	prices := map[string]float64{"$ABC": 85.5, "$XYZ": 12.01}
	history := map[string][]float64{"$ABC": {80, 85.5}, "$XYZ": {12.01}}
	if err := s.SaveMarket(prices, history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotPrices, gotHistory, ok := s.LoadMarket()
	if !ok {
		t.Fatal("expected snapshot to load")
	}
	if gotPrices["$ABC"] != 85.5 || gotPrices["$XYZ"] != 12.01 {
		t.Fatalf("unexpected prices: %v", gotPrices)
	}
	if len(gotHistory["$ABC"]) != 2 || gotHistory["$ABC"][0] != 80 {
		t.Fatalf("unexpected history: %v", gotHistory)
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	if _, _, ok := s.LoadMarket(); ok {
		t.Fatal("expected no snapshot for fresh directory")
	}
	if _, ok := s.LoadListings(); ok {
		t.Fatal("expected no listings snapshot")
	}
	if _, ok := s.LoadLedger(); ok {
		t.Fatal("expected no ledger snapshot")
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "market.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Corrupt input must report no snapshot, never fail.
	if _, _, ok := s.LoadMarket(); ok {
		t.Fatal("expected corrupt snapshot to be rejected")
	}
}

func TestStore_LoadMarketMissingFields(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Valid JSON but not a usable snapshot.
	if err := os.WriteFile(filepath.Join(dir, "market.json"), []byte(`{"stock_prices": null}`), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, ok := s.LoadMarket(); ok {
		t.Fatal("expected incomplete snapshot to be rejected")
	}
}

func TestStore_ListingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	owners := map[string]string{"$ABC": "user-1", "$XYZ": ""}
	if err := s.SaveListings(owners); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := s.LoadListings()
	if !ok {
		t.Fatal("expected snapshot to load")
	}
	if got["$ABC"] != "user-1" {
		t.Fatalf("unexpected owners: %v", got)
	}
	if _, exists := got["$XYZ"]; !exists {
		t.Fatalf("expected unowned listing preserved: %v", got)
	}
}

func TestStore_LedgerRoundTrip(t *testing.T) {
	s := newTestStore(t)

	accounts := map[string]ledger.Account{
		"user-1": {Balance: 42.5, Holdings: map[string]int64{"$ABC": 3}},
	}
	if err := s.SaveLedger(accounts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := s.LoadLedger()
	if !ok {
		t.Fatal("expected snapshot to load")
	}
	a := got["user-1"]
	if a.Balance != 42.5 || a.Holdings["$ABC"] != 3 {
		t.Fatalf("unexpected account: %+v", a)
	}
}

func TestSaver_SnapshotsLiveStores(t *testing.T) {
	dir := t.TempDir()
	files, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prices := newPriceStore(t)
	listings := newListingStore(t)
	accounts := ledger.New(50)
	accounts.AddShares("user-1", "$ABC", 2)

	saver := NewSaver(files, prices, listings, accounts, testLogger())
	saver.SaveAll()

	gotPrices, _, ok := files.LoadMarket()
	if !ok || gotPrices["$ABC"] != 85 {
		t.Fatalf("unexpected market snapshot: %v (ok %v)", gotPrices, ok)
	}
	gotOwners, ok := files.LoadListings()
	if !ok || gotOwners["$ABC"] != "user-1" {
		t.Fatalf("unexpected listings snapshot: %v (ok %v)", gotOwners, ok)
	}
	gotAccounts, ok := files.LoadLedger()
	if !ok || gotAccounts["user-1"].Holdings["$ABC"] != 2 {
		t.Fatalf("unexpected ledger snapshot: %v (ok %v)", gotAccounts, ok)
	}
}
