package engine

import (
	"log/slog"
	"math"
	"sync"

	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/clubexchange/clubexchange/internal/store"
)

// Rand is the source of uniform draws for price movements. Injected so
// tests can substitute a scripted sequence and assert exact prices.
type Rand interface {
	Float64() float64 // in [0, 1)
}

// Saver persists store snapshots after a batch of mutations. Saves run
// outside the engine critical section; the in-memory state stays
// authoritative either way.
type Saver interface {
	SaveMarket()
	SaveListings()
	SaveLedger()
}

// Config holds the market movement policy: delta bounds per operation,
// the price floor, the flat selling fee, and the new-listing band.
type Config struct {
	TickMinChange    float64
	TickMaxChange    float64
	BuyMinChange     float64
	BuyMaxChange     float64
	SellMinChange    float64
	SellMaxChange    float64
	NewStockMinPrice float64
	NewStockMaxPrice float64
	PriceFloor       float64
	SellingFee       float64
}

// MarketEngine applies randomized price movements to listed symbols:
// scheduled ticks, asymmetric buy/sell deltas, listings, and admin
// adjustments. One mutex serializes every read-modify-write sequence —
// decay and bankruptcy (same package) take the same lock, so no two
// operations ever interleave on a stale price.
type MarketEngine struct {
	prices   *store.PriceStore
	listings *store.ListingStore
	cfg      Config
	rng      Rand
	saver    Saver
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewMarketEngine creates a MarketEngine. saver may be nil when
// persistence is not wired (tests).
func NewMarketEngine(
	prices *store.PriceStore,
	listings *store.ListingStore,
	cfg Config,
	rng Rand,
	saver Saver,
	logger *slog.Logger,
) *MarketEngine {
	return &MarketEngine{
		prices:   prices,
		listings: listings,
		cfg:      cfg,
		rng:      rng,
		saver:    saver,
		logger:   logger,
	}
}

// uniform draws a uniformly distributed value in [lo, hi].
func (m *MarketEngine) uniform(lo, hi float64) float64 {
	return lo + m.rng.Float64()*(hi-lo)
}

// Tick runs one market-wide update pass: every listed symbol gets an
// independent uniform delta in [TickMinChange, TickMaxChange], floored
// at the configured price floor. One save after the full pass.
func (m *MarketEngine) Tick() {
	m.mu.Lock()
	for _, sym := range m.listings.Symbols() {
		cur, err := m.prices.Current(sym)
		if err != nil {
			continue
		}
		delta := m.uniform(m.cfg.TickMinChange, m.cfg.TickMaxChange)
		m.prices.Append(sym, math.Max(m.cfg.PriceFloor, cur+delta))
	}
	n := m.listings.Count()
	m.mu.Unlock()

	m.logger.Debug("market tick applied", slog.Int("symbols", n))
	m.saveMarket()
}

// Buy executes a purchase: the pre-mutation price is the amount
// charged, then a positive-biased uniform delta in [BuyMinChange,
// BuyMaxChange] moves the listed price. It returns the executed price
// or domain.ErrUnknownSymbol.
func (m *MarketEngine) Buy(symbol string) (float64, error) {
	m.mu.Lock()
	if !m.listings.Exists(symbol) {
		m.mu.Unlock()
		return 0, domain.ErrUnknownSymbol
	}
	cur, err := m.prices.Current(symbol)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	delta := m.uniform(m.cfg.BuyMinChange, m.cfg.BuyMaxChange)
	m.prices.Append(symbol, math.Max(m.cfg.PriceFloor, cur+delta))
	m.mu.Unlock()

	m.saveMarket()
	return cur, nil
}

// Sell executes a sale. The payout is the pre-delta price minus the
// flat selling fee; the listed price separately takes a negative
// uniform delta in [SellMinChange, SellMaxChange] off the pre-fee
// price, floored. The payout therefore does not equal the new listed
// price, and may even be negative when the fee exceeds the price.
func (m *MarketEngine) Sell(symbol string) (float64, error) {
	m.mu.Lock()
	if !m.listings.Exists(symbol) {
		m.mu.Unlock()
		return 0, domain.ErrUnknownSymbol
	}
	cur, err := m.prices.Current(symbol)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	payout := domain.RoundPrice(cur - m.cfg.SellingFee)
	delta := m.uniform(m.cfg.SellMinChange, m.cfg.SellMaxChange)
	m.prices.Append(symbol, math.Max(m.cfg.PriceFloor, cur-delta))
	m.mu.Unlock()

	m.saveMarket()
	return payout, nil
}

// List creates a new listing for owner (empty for admin-created,
// unowned listings). When initialPrice is nil the price is drawn
// uniformly from the configured new-listing band. It returns the
// initial listed price.
func (m *MarketEngine) List(symbol, owner string, initialPrice *float64) (float64, error) {
	m.mu.Lock()

	var price float64
	if initialPrice != nil {
		price = domain.RoundPrice(*initialPrice)
		if price <= 0 {
			m.mu.Unlock()
			return 0, domain.ErrInvalidPrice
		}
	} else {
		price = domain.RoundPrice(m.uniform(m.cfg.NewStockMinPrice, m.cfg.NewStockMaxPrice))
	}

	if err := m.listings.Create(symbol, owner); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	if err := m.prices.Create(symbol, price); err != nil {
		// Roll the listing back; price store and registry must agree.
		m.listings.Remove(symbol)
		m.mu.Unlock()
		return 0, err
	}
	m.mu.Unlock()

	m.saveAfterListing()
	m.logger.Info("symbol listed",
		slog.String("symbol", symbol),
		slog.String("owner", owner),
		slog.Float64("price", price),
	)
	return price, nil
}

// SetPrice commits an admin price adjustment through the store's
// normal validation path.
func (m *MarketEngine) SetPrice(symbol string, price float64) error {
	m.mu.Lock()
	err := m.prices.Append(symbol, price)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.saveMarket()
	return nil
}

func (m *MarketEngine) saveMarket() {
	if m.saver != nil {
		m.saver.SaveMarket()
	}
}

func (m *MarketEngine) saveAfterListing() {
	if m.saver != nil {
		m.saver.SaveMarket()
		m.saver.SaveListings()
	}
}
