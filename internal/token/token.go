// Package token abstracts the assets the controller holds in custody: the
// ERC20-style payment token the rig charges in, and the native currency of
// the hosting chain. Both come with an in-memory implementation for local
// development and tests, and an EVM-backed one for production.
package token

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferFailed    = errors.New("transfer failed")
)

// Token is the payment/reward token surface the controller needs: balance
// queries, spend approvals for the rig, and custody withdrawals.
type Token interface {
	// Address returns the token contract address.
	Address() common.Address
	// BalanceOf returns the token balance held by addr.
	BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error)
	// Approve authorizes spender to pull exactly amount from the holder.
	Approve(ctx context.Context, spender common.Address, amount *big.Int) error
	// Transfer moves amount from the holder to to. A failed transfer is an
	// error, never a silent no-op.
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

// NativeVault is the native-currency custody surface: what the controller's
// own account holds and the ability to pay it out.
type NativeVault interface {
	Balance(ctx context.Context) (*big.Int, error)
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}
