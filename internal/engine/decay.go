package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/google/btree"
)

// HoldingsQuery supplies aggregate share counts for popularity scoring.
// The ledger implements it; decay never owns holdings data.
type HoldingsQuery interface {
	TotalSharesHeld(symbol string) (int64, error)
}

// decayFloor is the lowest price a decay pass can leave a symbol at.
const decayFloor = 0.01

// riskBufferMax caps the number of preview entries beyond the symbols
// that will certainly decay.
const riskBufferMax = 3

// DecayConfig holds the decay policy knobs.
type DecayConfig struct {
	// Threshold is the listing count above which decay kicks in.
	Threshold int
	// Percent is the per-pass downward adjustment (0-100).
	Percent float64
	// BankruptcyPriceThreshold is the price at or below which a decayed
	// symbol is flagged as a bankruptcy risk (flagged only, never
	// auto-bankrupted by the decay pass).
	BankruptcyPriceThreshold float64
}

// RiskStock is one entry of the read-only decay preview.
type RiskStock struct {
	Symbol string
	Risk   float64 // 0-100
}

// rankEntry orders symbols by popularity score, lowest first. The
// character tie-break keeps equal share counts apart; a lexicographic
// comparison is the final key since permuted symbols can collide.
type rankEntry struct {
	score  float64
	symbol string
}

func rankLess(a, b rankEntry) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.symbol < b.symbol
}

// DecayPolicy ranks listed symbols by popularity and decays the least
// popular when the listing count exceeds the threshold. Stateless per
// invocation: scores are recomputed every evaluation, never cached.
type DecayPolicy struct {
	market   *MarketEngine
	holdings HoldingsQuery
	cfg      DecayConfig
	logger   *slog.Logger
}

// NewDecayPolicy creates a DecayPolicy bound to the market engine whose
// lock it shares.
func NewDecayPolicy(market *MarketEngine, holdings HoldingsQuery, cfg DecayConfig, logger *slog.Logger) *DecayPolicy {
	return &DecayPolicy{
		market:   market,
		holdings: holdings,
		cfg:      cfg,
		logger:   logger,
	}
}

// rank builds the ascending popularity ranking for all listed symbols.
// Callers must hold the market lock. A holdings failure aborts with
// domain.ErrDependencyUnavailable before any caller mutates state.
func (d *DecayPolicy) rank() (*btree.BTreeG[rankEntry], error) {
	tree := btree.NewG(2, rankLess)
	for _, sym := range d.market.listings.Symbols() {
		shares, err := d.holdings.TotalSharesHeld(sym)
		if err != nil {
			return nil, fmt.Errorf("holdings query for %s: %w", sym, domain.ErrDependencyUnavailable)
		}
		tree.ReplaceOrInsert(rankEntry{
			score:  float64(shares) + domain.TieBreak(sym),
			symbol: sym,
		})
	}
	return tree, nil
}

// Apply runs one decay evaluation. When the listing count exceeds the
// threshold, the excess lowest-popularity symbols each lose the
// configured percent of their price (floored at 0.01). It returns the
// decayed symbols, in decay order. A no-op below the threshold.
func (d *DecayPolicy) Apply() ([]string, error) {
	d.market.mu.Lock()

	total := d.market.listings.Count()
	if total <= d.cfg.Threshold {
		d.market.mu.Unlock()
		return nil, nil
	}
	excess := total - d.cfg.Threshold

	tree, err := d.rank()
	if err != nil {
		d.market.mu.Unlock()
		return nil, err
	}

	decayed := make([]string, 0, excess)
	tree.Ascend(func(e rankEntry) bool {
		if len(decayed) == excess {
			return false
		}
		cur, err := d.market.prices.Current(e.symbol)
		if err != nil {
			return true
		}
		newPrice := domain.RoundPrice(math.Max(decayFloor, cur*(1-d.cfg.Percent/100)))
		if err := d.market.prices.Append(e.symbol, newPrice); err != nil {
			return true
		}
		decayed = append(decayed, e.symbol)

		d.logger.Info("decay applied",
			slog.String("symbol", e.symbol),
			slog.Float64("from", cur),
			slog.Float64("to", newPrice),
		)
		if newPrice <= d.cfg.BankruptcyPriceThreshold {
			// Flag only. Bankruptcy stays a separate explicit trigger.
			d.logger.Warn("symbol near bankruptcy after decay",
				slog.String("symbol", e.symbol),
				slog.Float64("price", newPrice),
			)
		}
		return true
	})
	d.market.mu.Unlock()

	if len(decayed) > 0 {
		d.market.saveMarket()
	}
	return decayed, nil
}

// RiskStocks returns the read-only decay preview: the symbols that
// would decay right now at 100% risk, plus up to three buffer symbols
// with linearly decreasing risk. Pure function of current state.
func (d *DecayPolicy) RiskStocks() ([]RiskStock, error) {
	d.market.mu.Lock()
	defer d.market.mu.Unlock()

	total := d.market.listings.Count()
	if total <= d.cfg.Threshold {
		return nil, nil
	}
	excess := total - d.cfg.Threshold

	tree, err := d.rank()
	if err != nil {
		return nil, err
	}

	buffer := riskBufferMax
	if remaining := total - excess; remaining < buffer {
		buffer = remaining
	}
	riskCount := excess + buffer

	out := make([]RiskStock, 0, riskCount)
	tree.Ascend(func(e rankEntry) bool {
		i := len(out)
		if i == riskCount {
			return false
		}
		risk := 100.0
		if i >= excess && buffer > 0 {
			risk = 100 - float64(i-excess)*75/float64(buffer)
		}
		out = append(out, RiskStock{Symbol: e.symbol, Risk: risk})
		return true
	})
	return out, nil
}
