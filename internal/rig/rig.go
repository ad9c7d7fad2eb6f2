// Package rig abstracts the external priced resource the controller
// watches and buys from. A rig quotes one price for its current epoch; a
// successful purchase hands the epoch to the recipient and advances the
// epoch counter, which is the consistency guard against stale-price races.
package rig

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Rejections the rig itself raises on purchase. The controller surfaces
// these unchanged so the monitor can tell a lost race from a local guard
// failure.
var (
	ErrEpochAdvanced    = errors.New("rig epoch advanced")
	ErrDeadlineExceeded = errors.New("purchase deadline exceeded")
	ErrPriceExceeded    = errors.New("rig price above accepted maximum")
)

// PurchaseParams carries one purchase attempt. ExpectedEpoch must equal the
// rig's current epoch at execution or the purchase is rejected; Deadline is
// absolute; MaxPrice caps what the rig may charge.
type PurchaseParams struct {
	Recipient     common.Address
	ExpectedEpoch uint64
	Deadline      time.Time
	MaxPrice      *big.Int
	Metadata      string
}

// Rig is the external resource surface consumed by the controller.
type Rig interface {
	// Address identifies the rig.
	Address() common.Address
	// CurrentPrice returns the price of the current epoch.
	CurrentPrice(ctx context.Context) (*big.Int, error)
	// EpochID returns the current epoch counter.
	EpochID(ctx context.Context) (uint64, error)
	// PaymentToken returns the token the rig charges in.
	PaymentToken(ctx context.Context) (common.Address, error)
	// Purchase executes the buy and returns the price actually paid. The
	// quantity of the underlying asset minted is the rig's own business and
	// is not reported back.
	Purchase(ctx context.Context, params PurchaseParams) (*big.Int, error)
}
