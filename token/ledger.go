package token

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrTransferFailed is returned when an outbound movement could not be
	// completed by the underlying asset ledger.
	ErrTransferFailed     = errors.New("token: transfer failed")
	ErrInsufficientFunds  = errors.New("token: insufficient funds")
	ErrInvalidAmount      = errors.New("token: amount must be non-negative")
	ErrAssetNotRegistered = errors.New("token: asset not registered")
)

// Ledger is the client interface for the external fungible-asset ledger. Each
// asset is addressed by its own identifier; balances are wei-style integers.
//
// Implementations are trusted for balance queries, but Transfer may hand
// control to arbitrary code before returning. Callers must treat it as a
// reentrancy point.
type Ledger interface {
	BalanceOf(asset, account common.Address) (*big.Int, error)
	Transfer(asset, from, to common.Address, amount *big.Int) error
	Mint(asset, to common.Address, amount *big.Int) error
	Burn(asset, from common.Address, amount *big.Int) error
}
