package memory

import (
	"context"
	"math/big"
	"sync"
)

// Treasury is an in-memory app.Payer that credits balances immediately. It
// stands in for the ledger runtime's transfer primitive in tests and in the
// memory-backed server mode.
type Treasury struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

func NewTreasury() *Treasury {
	return &Treasury{balances: make(map[string]*big.Int)}
}

func (t *Treasury) Pay(_ context.Context, account string, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	balance, ok := t.balances[account]
	if !ok {
		balance = new(big.Int)
		t.balances[account] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// Balance returns the total credited to an account so far.
func (t *Treasury) Balance(account string) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if balance, ok := t.balances[account]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}
