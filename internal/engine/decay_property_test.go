package engine

import (
	"fmt"
	"sort"
	"testing"

	"github.com/clubexchange/clubexchange/internal/domain"
	"pgregory.net/rapid"
)

// TestProperty_DecaySelectsExcessLowestPopularity verifies that a decay
// pass over any holdings distribution decays exactly the excess
// lowest-popularity symbols under the score ordering, computed here
// independently with a plain sort.
func TestProperty_DecaySelectsExcessLowestPopularity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(1, 20).Draw(t, "total")
		threshold := rapid.IntRange(0, 20).Draw(t, "threshold")

		m, prices, _, _ := newTestEngine(testConfig(), &seqRand{vals: []float64{0.5}})
		holdings := mapHoldings{}
		symbols := make([]string, total)
		for i := 0; i < total; i++ {
			symbols[i] = fmt.Sprintf("$Q%02d", i)
			mustListRapid(t, m, symbols[i], fmt.Sprintf("u%d", i), 100)
			holdings[symbols[i]] = int64(rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("shares-%d", i)))
		}

		cfg := DecayConfig{Threshold: threshold, Percent: 5, BankruptcyPriceThreshold: 1}
		d := NewDecayPolicy(m, holdings, cfg, testLogger())

		decayed, err := d.Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if total <= threshold {
			if len(decayed) != 0 {
				t.Fatalf("expected no decay (total %d <= threshold %d), got %v", total, threshold, decayed)
			}
			return
		}

		excess := total - threshold
		if len(decayed) != excess {
			t.Fatalf("expected %d decayed symbols, got %d (%v)", excess, len(decayed), decayed)
		}

		// Independent ranking: score ascending, symbol as final key.
		ranked := append([]string(nil), symbols...)
		sort.Slice(ranked, func(i, j int) bool {
			si := float64(holdings[ranked[i]]) + domain.TieBreak(ranked[i])
			sj := float64(holdings[ranked[j]]) + domain.TieBreak(ranked[j])
			if si != sj {
				return si < sj
			}
			return ranked[i] < ranked[j]
		})
		for i := 0; i < excess; i++ {
			if decayed[i] != ranked[i] {
				t.Fatalf("decay set mismatch at %d: got %v, want prefix of %v", i, decayed, ranked[:excess])
			}
		}

		// Decayed symbols lost 5%, survivors unchanged.
		decayedSet := make(map[string]bool, excess)
		for _, sym := range decayed {
			decayedSet[sym] = true
		}
		for _, sym := range symbols {
			p, _ := prices.Current(sym)
			if decayedSet[sym] && p != 95 {
				t.Fatalf("%s: expected decayed price 95, got %v", sym, p)
			}
			if !decayedSet[sym] && p != 100 {
				t.Fatalf("%s: expected untouched price 100, got %v", sym, p)
			}
		}
	})
}

// TestProperty_RiskPreviewMatchesDecaySelection verifies that the
// read-only preview's 100%-risk prefix is exactly the set a decay pass
// would select on the same state, and that the preview never mutates
// anything.
func TestProperty_RiskPreviewMatchesDecaySelection(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(1, 15).Draw(t, "total")
		threshold := rapid.IntRange(0, 14).Draw(t, "threshold")

		m, prices, _, _ := newTestEngine(testConfig(), &seqRand{vals: []float64{0.5}})
		holdings := mapHoldings{}
		for i := 0; i < total; i++ {
			sym := fmt.Sprintf("$R%02d", i)
			mustListRapid(t, m, sym, fmt.Sprintf("u%d", i), 100)
			holdings[sym] = int64(rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("shares-%d", i)))
		}

		cfg := DecayConfig{Threshold: threshold, Percent: 5, BankruptcyPriceThreshold: 1}
		d := NewDecayPolicy(m, holdings, cfg, testLogger())

		risks, err := d.RiskStocks()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Preview is repeatable on unchanged holdings.
		again, err := d.RiskStocks()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(risks) != len(again) {
			t.Fatalf("preview not deterministic: %v vs %v", risks, again)
		}
		for i := range risks {
			if risks[i] != again[i] {
				t.Fatalf("preview not deterministic at %d: %v vs %v", i, risks[i], again[i])
			}
		}

		// Preview never mutates prices.
		for i := 0; i < total; i++ {
			h, _ := prices.History(fmt.Sprintf("$R%02d", i))
			if len(h) != 1 {
				t.Fatalf("preview mutated history: %v", h)
			}
		}

		if total <= threshold {
			if len(risks) != 0 {
				t.Fatalf("expected empty preview, got %v", risks)
			}
			return
		}

		excess := total - threshold
		buffer := total - excess
		if buffer > 3 {
			buffer = 3
		}
		if len(risks) != excess+buffer {
			t.Fatalf("expected %d preview entries, got %d", excess+buffer, len(risks))
		}

		decayed, err := d.Apply()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := 0; i < excess; i++ {
			if risks[i].Symbol != decayed[i] {
				t.Fatalf("preview prefix %v disagrees with decay set %v", risks[:excess], decayed)
			}
			if risks[i].Risk != 100 {
				t.Fatalf("expected 100%% risk for certain decay, got %v", risks[i])
			}
		}
	})
}
