package payment

import (
	"context"
	"sync"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// MemoryWallet keeps balances in process memory.
type MemoryWallet struct {
	mu       sync.Mutex
	balances map[types.Identity]uint64
}

var _ Wallet = (*MemoryWallet)(nil)

// NewMemoryWallet returns a wallet where every balance starts at zero.
func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{balances: make(map[types.Identity]uint64)}
}

func (w *MemoryWallet) Transfer(ctx context.Context, from, to types.Identity, amt uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	have := w.balances[from]
	if have < amt {
		return errors.Wrapf(ErrInsufficientFunds, "%s holds %d, needs %d", from.Short(), have, amt)
	}
	if from == to {
		return nil
	}
	credited, err := amount.Add(w.balances[to], amt)
	if err != nil {
		return errors.Wrapf(ErrBalanceOverflow, "crediting %s", to.Short())
	}
	w.balances[from] = have - amt
	w.balances[to] = credited
	return nil
}

func (w *MemoryWallet) Deposit(ctx context.Context, to types.Identity, amt uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	credited, err := amount.Add(w.balances[to], amt)
	if err != nil {
		return errors.Wrapf(ErrBalanceOverflow, "crediting %s", to.Short())
	}
	w.balances[to] = credited
	return nil
}

func (w *MemoryWallet) Balance(ctx context.Context, id types.Identity) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[id], nil
}
