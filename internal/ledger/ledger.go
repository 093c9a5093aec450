package ledger

import (
	"sync"

	"github.com/clubexchange/clubexchange/internal/domain"
)

// Account holds a user's cash balance and per-symbol share positions.
type Account struct {
	Balance  float64          `json:"balance"`
	Holdings map[string]int64 `json:"holdings"`
}

// Ledger is a thread-safe in-memory store of user accounts. Accounts
// are created lazily with the configured starting balance the first
// time a user is referenced. The ledger also answers the aggregate
// holdings queries the market engine needs for decay popularity and
// bankruptcy liquidation.
type Ledger struct {
	mu              sync.RWMutex
	accounts        map[string]*Account
	startingBalance float64
}

// New creates an empty Ledger. New users start with startingBalance.
func New(startingBalance float64) *Ledger {
	return &Ledger{
		accounts:        make(map[string]*Account),
		startingBalance: startingBalance,
	}
}

// ensure returns the account for a user, creating it if needed.
// Callers must hold the write lock.
func (l *Ledger) ensure(userID string) *Account {
	a, ok := l.accounts[userID]
	if !ok {
		a = &Account{
			Balance:  l.startingBalance,
			Holdings: make(map[string]int64),
		}
		l.accounts[userID] = a
	}
	return a
}

// Balance returns a user's cash balance, creating the account if the
// user is new.
func (l *Ledger) Balance(userID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensure(userID).Balance
}

// Deposit applies a signed cash adjustment to a user's balance and
// returns the new balance. Negative amounts are charges; balances may
// go negative (the flat selling fee can exceed a payout).
func (l *Ledger) Deposit(userID string, amount float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.ensure(userID)
	a.Balance = domain.RoundPrice(a.Balance + amount)
	return a.Balance
}

// Withdraw charges a user, failing with domain.ErrInsufficientFunds if
// the balance does not cover the amount.
func (l *Ledger) Withdraw(userID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.ensure(userID)
	if a.Balance < amount {
		return domain.ErrInsufficientFunds
	}
	a.Balance = domain.RoundPrice(a.Balance - amount)
	return nil
}

// Transfer moves cash from one user to another. It fails with
// domain.ErrInsufficientFunds if the sender cannot cover the amount and
// with a ValidationError for non-positive amounts or self-transfers.
func (l *Ledger) Transfer(fromID, toID string, amount float64) error {
	if amount <= 0 {
		return &domain.ValidationError{Message: "amount must be positive"}
	}
	if fromID == toID {
		return &domain.ValidationError{Message: "cannot gift to yourself"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from := l.ensure(fromID)
	if from.Balance < amount {
		return domain.ErrInsufficientFunds
	}
	to := l.ensure(toID)
	from.Balance = domain.RoundPrice(from.Balance - amount)
	to.Balance = domain.RoundPrice(to.Balance + amount)
	return nil
}

// AddShares credits shares of a symbol to a user's position.
func (l *Ledger) AddShares(userID, symbol string, qty int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.ensure(userID)
	a.Holdings[symbol] += qty
}

// RemoveShares debits shares from a user's position, failing with
// domain.ErrInsufficientHoldings if the position is smaller than qty.
func (l *Ledger) RemoveShares(userID, symbol string, qty int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.ensure(userID)
	if a.Holdings[symbol] < qty {
		return domain.ErrInsufficientHoldings
	}
	a.Holdings[symbol] -= qty
	if a.Holdings[symbol] == 0 {
		delete(a.Holdings, symbol)
	}
	return nil
}

// SharesOf returns a user's position in a symbol.
func (l *Ledger) SharesOf(userID, symbol string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[userID]
	if !ok {
		return 0
	}
	return a.Holdings[symbol]
}

// Portfolio returns a user's balance and a copy of their positions.
func (l *Ledger) Portfolio(userID string) (float64, map[string]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.ensure(userID)
	holdings := make(map[string]int64, len(a.Holdings))
	for sym, qty := range a.Holdings {
		holdings[sym] = qty
	}
	return a.Balance, holdings
}

// TotalSharesHeld returns the number of shares of a symbol held across
// all users. Used as the popularity score basis for decay ranking.
func (l *Ledger) TotalSharesHeld(symbol string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, a := range l.accounts {
		if qty := a.Holdings[symbol]; qty > 0 {
			total += qty
		}
	}
	return total, nil
}

// PositionsOf returns every nonzero position in a symbol, keyed by
// user ID.
func (l *Ledger) PositionsOf(symbol string) (map[string]int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int64)
	for userID, a := range l.accounts {
		if qty := a.Holdings[symbol]; qty > 0 {
			out[userID] = qty
		}
	}
	return out, nil
}

// PurgePositions zeroes every user's position in a symbol and returns
// the purged positions keyed by user ID. Used by bankruptcy handling.
func (l *Ledger) PurgePositions(symbol string) (map[string]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int64)
	for userID, a := range l.accounts {
		if qty := a.Holdings[symbol]; qty > 0 {
			out[userID] = qty
			delete(a.Holdings, symbol)
		}
	}
	return out, nil
}

// Snapshot returns a deep copy of all accounts for the persistence
// layer.
func (l *Ledger) Snapshot() map[string]Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]Account, len(l.accounts))
	for userID, a := range l.accounts {
		holdings := make(map[string]int64, len(a.Holdings))
		for sym, qty := range a.Holdings {
			holdings[sym] = qty
		}
		out[userID] = Account{Balance: a.Balance, Holdings: holdings}
	}
	return out
}

// Restore replaces the ledger contents with a loaded snapshot.
// Nil holdings maps are replaced with empty ones.
func (l *Ledger) Restore(accounts map[string]Account) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts = make(map[string]*Account, len(accounts))
	for userID, a := range accounts {
		holdings := make(map[string]int64, len(a.Holdings))
		for sym, qty := range a.Holdings {
			if qty > 0 {
				holdings[sym] = qty
			}
		}
		l.accounts[userID] = &Account{Balance: a.Balance, Holdings: holdings}
	}
}
