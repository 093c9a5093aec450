package service

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/clubexchange/clubexchange/internal/domain"
	"github.com/clubexchange/clubexchange/internal/engine"
	"github.com/clubexchange/clubexchange/internal/ledger"
	"github.com/clubexchange/clubexchange/internal/store"
)

// TradeReceipt represents the result of an executed buy or sell.
type TradeReceipt struct {
	TradeID string
	UserID  string
	Symbol  string
	Side    string // "buy" or "sell"
	Price   float64
	Balance float64
}

// StockQuote represents one listed symbol in quote and list responses.
type StockQuote struct {
	Symbol string
	Price  float64
	Owner  string // empty for unowned listings
}

// PortfolioPosition represents one holding valued at the current price.
type PortfolioPosition struct {
	Symbol string
	Shares int64
	Price  float64 // 0 when the symbol has been delisted
	Value  float64
}

// PortfolioResponse represents a user's cash and positions.
type PortfolioResponse struct {
	UserID    string
	Balance   float64
	Positions []PortfolioPosition
	NetWorth  float64
}

// TradingService executes buys and sells against the market engine and
// settles them in the ledger, and serves quote, history, portfolio, and
// gift operations.
type TradingService struct {
	market   *engine.MarketEngine
	prices   *store.PriceStore
	listings *store.ListingStore
	accounts *ledger.Ledger
	saver    engine.Saver
	logger   *slog.Logger
}

// NewTradingService creates a new TradingService with the given
// dependencies. saver may be nil when persistence is not wired (tests).
func NewTradingService(
	market *engine.MarketEngine,
	prices *store.PriceStore,
	listings *store.ListingStore,
	accounts *ledger.Ledger,
	saver engine.Saver,
	logger *slog.Logger,
) *TradingService {
	return &TradingService{
		market:   market,
		prices:   prices,
		listings: listings,
		accounts: accounts,
		saver:    saver,
		logger:   logger,
	}
}

// Buy purchases one share for a user. The user is charged the listed
// price as of execution; the purchase itself then pushes the listed
// price up. Fails with domain.ErrInsufficientFunds when the balance
// does not cover the current price.
func (s *TradingService) Buy(userID, symbol string) (*TradeReceipt, error) {
	symbol = domain.NormalizeSymbol(symbol)

	cur, err := s.prices.Current(symbol)
	if err != nil {
		return nil, err
	}
	if s.accounts.Balance(userID) < cur {
		return nil, domain.ErrInsufficientFunds
	}

	price, err := s.market.Buy(symbol)
	if err != nil {
		return nil, err
	}

	balance := s.accounts.Deposit(userID, -price)
	s.accounts.AddShares(userID, symbol, 1)
	s.saveLedger()

	s.logger.Info("buy executed",
		slog.String("user", userID),
		slog.String("symbol", symbol),
		slog.Float64("price", price),
	)
	return &TradeReceipt{
		TradeID: uuid.New().String(),
		UserID:  userID,
		Symbol:  symbol,
		Side:    "buy",
		Price:   price,
		Balance: balance,
	}, nil
}

// Sell sells one share for a user. The payout is the listed price minus
// the flat selling fee and may be negative; the sale then pushes the
// listed price down. Fails with domain.ErrInsufficientHoldings when the
// user holds no shares of the symbol.
func (s *TradingService) Sell(userID, symbol string) (*TradeReceipt, error) {
	symbol = domain.NormalizeSymbol(symbol)

	if !s.listings.Exists(symbol) {
		return nil, domain.ErrUnknownSymbol
	}

	// Debit the share before touching the engine: RemoveShares is atomic,
	// so of two concurrent sells of the same last share exactly one gets
	// the debit and the other fails here without moving the price.
	if err := s.accounts.RemoveShares(userID, symbol, 1); err != nil {
		return nil, err
	}

	payout, err := s.market.Sell(symbol)
	if err != nil {
		s.accounts.AddShares(userID, symbol, 1)
		return nil, err
	}
	balance := s.accounts.Deposit(userID, payout)
	s.saveLedger()

	s.logger.Info("sell executed",
		slog.String("user", userID),
		slog.String("symbol", symbol),
		slog.Float64("payout", payout),
	)
	return &TradeReceipt{
		TradeID: uuid.New().String(),
		UserID:  userID,
		Symbol:  symbol,
		Side:    "sell",
		Price:   payout,
		Balance: balance,
	}, nil
}

// Quote returns the current listed price for a symbol.
func (s *TradingService) Quote(symbol string) (*StockQuote, error) {
	symbol = domain.NormalizeSymbol(symbol)

	price, err := s.prices.Current(symbol)
	if err != nil {
		return nil, err
	}
	owner, _ := s.listings.OwnerOf(symbol)
	return &StockQuote{Symbol: symbol, Price: price, Owner: owner}, nil
}

// ListStocks returns every listed symbol with its current price, sorted
// by symbol.
func (s *TradingService) ListStocks() []StockQuote {
	symbols := s.prices.Symbols()
	sort.Strings(symbols)
	out := make([]StockQuote, 0, len(symbols))
	for _, sym := range symbols {
		price, err := s.prices.Current(sym)
		if err != nil {
			continue
		}
		owner, _ := s.listings.OwnerOf(sym)
		out = append(out, StockQuote{Symbol: sym, Price: price, Owner: owner})
	}
	return out
}

// History returns the full price history for a symbol, oldest first.
func (s *TradingService) History(symbol string) ([]float64, error) {
	symbol = domain.NormalizeSymbol(symbol)
	return s.prices.History(symbol)
}

// Portfolio returns a user's balance and positions valued at current
// prices. Positions in delisted symbols are reported with zero value.
func (s *TradingService) Portfolio(userID string) *PortfolioResponse {
	balance, holdings := s.accounts.Portfolio(userID)

	positions := make([]PortfolioPosition, 0, len(holdings))
	netWorth := balance
	for _, sym := range sortedKeys(holdings) {
		qty := holdings[sym]
		price, err := s.prices.Current(sym)
		if err != nil {
			price = 0
		}
		value := domain.RoundPrice(price * float64(qty))
		netWorth = domain.RoundPrice(netWorth + value)
		positions = append(positions, PortfolioPosition{
			Symbol: sym,
			Shares: qty,
			Price:  price,
			Value:  value,
		})
	}

	return &PortfolioResponse{
		UserID:    userID,
		Balance:   balance,
		Positions: positions,
		NetWorth:  netWorth,
	}
}

// Gift transfers cash between two users.
func (s *TradingService) Gift(fromID, toID string, amount float64) error {
	if err := s.accounts.Transfer(fromID, toID, amount); err != nil {
		return err
	}
	s.saveLedger()

	s.logger.Info("gift transferred",
		slog.String("from", fromID),
		slog.String("to", toID),
		slog.Float64("amount", amount),
	)
	return nil
}

func (s *TradingService) saveLedger() {
	if s.saver != nil {
		s.saver.SaveLedger()
	}
}
