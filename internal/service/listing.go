package service

import (
	"log/slog"
	"sort"

	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/clubexchange/clubexchange/internal/engine"
	"github.com/clubexchange/clubexchange/internal/ledger"
)

// IPOResponse represents the result of a user-funded listing.
type IPOResponse struct {
	Symbol  string
	Owner   string
	Price   float64
	Cost    float64
	Balance float64
	// Decayed lists symbols pushed down by the decay pass this listing
	// triggered, in decay order.
	Decayed []string
}

// ListingService creates and removes listings: user-funded IPOs, admin
// listings, bankruptcies, and price adjustments, plus the decay-risk
// preview.
type ListingService struct {
	market     *engine.MarketEngine
	decay      *engine.DecayPolicy
	bankruptcy *engine.BankruptcyHandler
	accounts   *ledger.Ledger
	ipoCost    float64
	saver      engine.Saver
	logger     *slog.Logger
}

// NewListingService creates a new ListingService with the given
// dependencies. saver may be nil when persistence is not wired (tests).
func NewListingService(
	market *engine.MarketEngine,
	decay *engine.DecayPolicy,
	bankruptcy *engine.BankruptcyHandler,
	accounts *ledger.Ledger,
	ipoCost float64,
	saver engine.Saver,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		market:     market,
		decay:      decay,
		bankruptcy: bankruptcy,
		accounts:   accounts,
		ipoCost:    ipoCost,
		saver:      saver,
		logger:     logger,
	}
}

// IPO lists a new user-owned symbol. The owner is charged the flat
// listing cost up front and refunded in full if the listing fails. The
// initial price is drawn from the new-listing band, and a successful
// listing immediately runs a decay evaluation over the grown market.
func (s *ListingService) IPO(ownerID, rawSymbol string) (*IPOResponse, error) {
	symbol := domain.NormalizeSymbol(rawSymbol)
	if !domain.ValidSymbol(symbol) {
		return nil, &domain.ValidationError{
			Message: "symbol must be $ followed by 2-4 uppercase letters or digits",
		}
	}

	if err := s.accounts.Withdraw(ownerID, s.ipoCost); err != nil {
		return nil, err
	}

	price, err := s.market.List(symbol, ownerID, nil)
	if err != nil {
		// Full refund; the charge only stands for a completed listing.
		s.accounts.Deposit(ownerID, s.ipoCost)
		return nil, err
	}
	s.saveLedger()

	decayed, decayErr := s.decay.Apply()
	if decayErr != nil {
		// The listing stands; the decay pass aborted without mutating.
		s.logger.Warn("decay evaluation failed after listing",
			slog.String("symbol", symbol),
			slog.String("error", decayErr.Error()),
		)
	}

	return &IPOResponse{
		Symbol:  symbol,
		Owner:   ownerID,
		Price:   price,
		Cost:    s.ipoCost,
		Balance: s.accounts.Balance(ownerID),
		Decayed: decayed,
	}, nil
}

// AdminCreate lists a new symbol without charge, optionally assigned to
// an owner. When price is nil the initial price is drawn from the
// new-listing band.
func (s *ListingService) AdminCreate(rawSymbol, owner string, price *float64) (*StockQuote, error) {
	symbol := domain.NormalizeSymbol(rawSymbol)
	if !domain.ValidSymbol(symbol) {
		return nil, &domain.ValidationError{
			Message: "symbol must be $ followed by 2-4 uppercase letters or digits",
		}
	}

	listed, err := s.market.List(symbol, owner, price)
	if err != nil {
		return nil, err
	}
	return &StockQuote{Symbol: symbol, Price: listed, Owner: owner}, nil
}

// Bankrupt removes a symbol entirely, liquidating every holder's
// position. It returns the affected holder IDs, sorted.
func (s *ListingService) Bankrupt(rawSymbol string) ([]string, error) {
	symbol := domain.NormalizeSymbol(rawSymbol)
	return s.bankruptcy.Handle(symbol)
}

// SetPrice commits an admin price adjustment.
func (s *ListingService) SetPrice(rawSymbol string, price float64) (*StockQuote, error) {
	symbol := domain.NormalizeSymbol(rawSymbol)
	if price <= 0 {
		return nil, domain.ErrInvalidPrice
	}
	if err := s.market.SetPrice(symbol, price); err != nil {
		return nil, err
	}

	s.logger.Info("price adjusted",
		slog.String("symbol", symbol),
		slog.Float64("price", price),
	)
	return &StockQuote{Symbol: symbol, Price: domain.RoundPrice(price)}, nil
}

// DecayRisk returns the read-only decay preview.
func (s *ListingService) DecayRisk() ([]engine.RiskStock, error) {
	return s.decay.RiskStocks()
}

func (s *ListingService) saveLedger() {
	if s.saver != nil {
		s.saver.SaveLedger()
	}
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
