// Package ledger holds the balances that distributor instances move value
// between: native currency per address and fungible-token balances per
// (token, holder) pair.
//
// All value movement that must be all-or-nothing runs inside Ledger.Atomic.
// The callback receives a State view whose writes are journaled; returning an
// error from the callback rolls every write back, so a failed operation leaves
// balances exactly as they were.
package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State is the balance view used by code running inside Atomic.
type State interface {
	// Balance returns the native balance of addr (zero if unknown).
	Balance(addr common.Address) *uint256.Int

	// Transfer moves native value from one address to another.
	Transfer(from, to common.Address, amount *uint256.Int) error

	// TokenBalance returns holder's balance of token.
	TokenBalance(token, holder common.Address) (*uint256.Int, error)

	// TransferToken moves token units from one holder to another.
	TransferToken(token, from, to common.Address, amount *uint256.Int) error
}

// Ledger is a State that can also run a unit of work atomically.
type Ledger interface {
	State

	// Atomic runs fn with exclusive access to the ledger. If fn returns an
	// error, every balance change made through the State it was given is
	// reverted and the error is returned.
	Atomic(fn func(State) error) error
}
