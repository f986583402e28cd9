// Package payment moves value between identities on behalf of the
// licensing engine. A Rail transfer is atomic per call; the purchase flow
// issues two (seller share, then platform fee) and treats any failure as
// an external dependency failure.
package payment

import (
	"context"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// Rail transfers amount from one identity to another.
type Rail interface {
	Transfer(ctx context.Context, from, to types.Identity, amount uint64) error
}

// Wallet is a Rail that also holds balances, used by the CLI to fund buyers.
type Wallet interface {
	Rail
	Deposit(ctx context.Context, to types.Identity, amount uint64) error
	Balance(ctx context.Context, id types.Identity) (uint64, error)
}

var (
	ErrInsufficientFunds = errors.Reason("insufficient_funds", errors.ErrConflict, "insufficient funds")
	ErrBalanceOverflow   = errors.Reason("balance_overflow", errors.ErrArithmetic, "balance would overflow")
	ErrInvalidAmount     = errors.Reason("amount_invalid", errors.ErrValidation, "amount is not representable")
)
