package service

import (
	"errors"
	"testing"

	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/clubexchange/clubexchange/internal/engine"
)

// newListingFixture wires the listing service on top of the trading
// fixture, with the decay threshold high enough that listings never
// trigger a decay unless the test lowers it.
func newListingFixture(t *testing.T, rng engine.Rand, startingBalance float64, decayThreshold int) (*fixture, *ListingService) {
	t.Helper()

	f := newFixture(t, rng, startingBalance)
	decayCfg := engine.DecayConfig{
		Threshold:                decayThreshold,
		Percent:                  5,
		BankruptcyPriceThreshold: 1,
	}
	decay := engine.NewDecayPolicy(f.market, f.accounts, decayCfg, testLogger())
	bankruptcy := engine.NewBankruptcyHandler(f.market, f.accounts, testLogger())
	svc := NewListingService(f.market, decay, bankruptcy, f.accounts, 1000, nil, testLogger())
	return f, svc
}

func TestListingService_IPO(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 1200, 100)

	resp, err := svc.IPO("u1", "club")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Symbol != "$CLUB" {
		t.Errorf("Symbol = %q, want $CLUB", resp.Symbol)
	}
	// Initial price drawn from the [80, 90] band at f = 0.5.
	if resp.Price != 85 {
		t.Errorf("Price = %v, want 85", resp.Price)
	}
	if resp.Cost != 1000 {
		t.Errorf("Cost = %v, want 1000", resp.Cost)
	}
	if resp.Balance != 200 {
		t.Errorf("Balance = %v, want 200", resp.Balance)
	}
	if len(resp.Decayed) != 0 {
		t.Errorf("expected no decay below threshold, got %v", resp.Decayed)
	}

	owner, err := f.listings.OwnerOf("$CLUB")
	if err != nil || owner != "u1" {
		t.Errorf("OwnerOf = %q, %v; want u1", owner, err)
	}
}

func TestListingService_IPO_InvalidSymbol(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 1200, 100)

	for _, raw := range []string{"", "a", "toolong", "$ab!", "$abcde"} {
		var vErr *domain.ValidationError
		if _, err := svc.IPO("u1", raw); !errors.As(err, &vErr) {
			t.Errorf("IPO(%q): expected ValidationError, got %v", raw, err)
		}
	}

	// Validation failures never charge the user.
	if got := f.accounts.Balance("u1"); got != 1200 {
		t.Errorf("Balance = %v, want 1200", got)
	}
}

func TestListingService_IPO_InsufficientFunds(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 500, 100)

	_, err := svc.IPO("u1", "club")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if f.listings.Exists("$CLUB") {
		t.Error("failed IPO must not create a listing")
	}
	if got := f.accounts.Balance("u1"); got != 500 {
		t.Errorf("Balance = %v, want 500", got)
	}
}

func TestListingService_IPO_RefundsOnConflict(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 2500, 100)
	f.list(t, "$CLUB", "someone-else", 50)

	_, err := svc.IPO("u1", "club")
	if !errors.Is(err, domain.ErrDuplicateSymbol) {
		t.Fatalf("expected ErrDuplicateSymbol, got %v", err)
	}

	// The charge is refunded in full when the listing fails.
	if got := f.accounts.Balance("u1"); got != 2500 {
		t.Errorf("Balance = %v, want 2500", got)
	}
}

func TestListingService_IPO_OnePerOwner(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 5000, 100)

	if _, err := svc.IPO("u1", "aa"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.IPO("u1", "bb")
	if !errors.Is(err, domain.ErrDuplicateOwner) {
		t.Fatalf("expected ErrDuplicateOwner, got %v", err)
	}
	if got := f.accounts.Balance("u1"); got != 4000 {
		t.Errorf("Balance = %v, want 4000 (one charge, one refund)", got)
	}
}

func TestListingService_IPO_TriggersDecay(t *testing.T) {
	_, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 1200, 0)

	resp, err := svc.IPO("u1", "club")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Threshold 0: the market is over capacity as soon as one symbol
	// lists, so the fresh listing decays immediately.
	if len(resp.Decayed) != 1 || resp.Decayed[0] != "$CLUB" {
		t.Fatalf("Decayed = %v, want [$CLUB]", resp.Decayed)
	}
}

func TestListingService_AdminCreate(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 1200, 100)

	price := 42.555
	q, err := svc.AdminCreate("new", "", &price)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Symbol != "$NEW" || q.Price != 42.56 {
		t.Errorf("unexpected quote: %+v", q)
	}

	// Admin-created listings are unowned.
	owner, err := f.listings.OwnerOf("$NEW")
	if err != nil || owner != "" {
		t.Errorf("OwnerOf = %q, %v; want empty", owner, err)
	}

	// Without a price the band draw applies, and an owner sticks.
	q2, err := svc.AdminCreate("rnd", "u7", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q2.Price != 85 {
		t.Errorf("Price = %v, want 85", q2.Price)
	}
	owner2, err := f.listings.OwnerOf("$RND")
	if err != nil || owner2 != "u7" {
		t.Errorf("OwnerOf = %q, %v; want u7", owner2, err)
	}
}

func TestListingService_Bankrupt(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 100, 100)
	f.list(t, "$ABC", "owner-1", 50)
	f.accounts.AddShares("u2", "$ABC", 3)
	f.accounts.AddShares("u1", "$ABC", 1)

	holders, err := svc.Bankrupt("abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holders) != 2 || holders[0] != "u1" || holders[1] != "u2" {
		t.Errorf("holders = %v, want [u1 u2]", holders)
	}
	if f.listings.Exists("$ABC") {
		t.Error("bankrupted symbol still listed")
	}
	if got := f.accounts.SharesOf("u2", "$ABC"); got != 0 {
		t.Errorf("holdings not liquidated: %d", got)
	}

	if _, err := svc.Bankrupt("$ABC"); !errors.Is(err, domain.ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestListingService_SetPrice(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 100, 100)
	f.list(t, "$ABC", "owner-1", 50)

	q, err := svc.SetPrice("abc", 12.345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 12.35 {
		t.Errorf("Price = %v, want 12.35", q.Price)
	}
	cur, _ := f.prices.Current("$ABC")
	if cur != 12.35 {
		t.Errorf("listed price = %v, want 12.35", cur)
	}

	if _, err := svc.SetPrice("$ABC", 0); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	// Sub-cent values round to 0.00 and are rejected, not committed.
	if _, err := svc.SetPrice("$ABC", 0.004); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for sub-cent price, got %v", err)
	}
	cur, _ = f.prices.Current("$ABC")
	if cur != 12.35 {
		t.Errorf("listed price moved on rejected update: %v", cur)
	}
	if _, err := svc.SetPrice("$ZZZ", 10); !errors.Is(err, domain.ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestListingService_DecayRisk(t *testing.T) {
	f, svc := newListingFixture(t, &stubRand{vals: []float64{0.5}}, 100, 2)
	f.list(t, "$AA", "u1", 50)
	f.list(t, "$BB", "u2", 50)
	f.list(t, "$CC", "u3", 50)

	risks, err := svc.DecayRisk()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One certain decay plus a two-symbol buffer.
	if len(risks) != 3 {
		t.Fatalf("expected 3 entries, got %d: %v", len(risks), risks)
	}
	if risks[0].Risk != 100 {
		t.Errorf("risks[0] = %+v, want 100%% risk", risks[0])
	}
}
