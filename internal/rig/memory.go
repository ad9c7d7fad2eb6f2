package rig

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	logging "github.com/ipfs/go-log"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/token"
)

var log = logging.Logger("rig/memory")

// MemoryRig simulates a priced rig against an in-memory token ledger, for
// local development and tests. It enforces the same purchase rejections a
// real rig would: stale epoch, passed deadline, price above the cap, and
// insufficient buyer allowance.
type MemoryRig struct {
	addr   common.Address
	ledger *token.MemoryLedger
	buyer  common.Address
	now    func() time.Time

	mu    sync.Mutex
	price *big.Int
	epoch uint64
}

// NewMemoryRig creates a rig at addr charging in the given ledger's token,
// quoting initialPrice for epoch 1. Payment is pulled from buyer's
// allowance, standing in for the transaction sender of a real rig.
func NewMemoryRig(addr common.Address, ledger *token.MemoryLedger, buyer common.Address, initialPrice *big.Int) *MemoryRig {
	return &MemoryRig{
		addr:   addr,
		ledger: ledger,
		buyer:  buyer,
		now:    time.Now,
		price:  new(big.Int).Set(initialPrice),
		epoch:  1,
	}
}

// SetNow overrides the rig's clock. Test helper.
func (r *MemoryRig) SetNow(now func() time.Time) { r.now = now }

// SetPrice changes the quoted price without advancing the epoch, simulating
// the rig's own price drift within an epoch.
func (r *MemoryRig) SetPrice(price *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.price = new(big.Int).Set(price)
}

// AdvanceEpoch bumps the epoch counter without a purchase, simulating a
// competing buyer winning the race.
func (r *MemoryRig) AdvanceEpoch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
}

func (r *MemoryRig) Address() common.Address { return r.addr }

func (r *MemoryRig) CurrentPrice(context.Context) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return new(big.Int).Set(r.price), nil
}

func (r *MemoryRig) EpochID(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch, nil
}

func (r *MemoryRig) PaymentToken(context.Context) (common.Address, error) {
	return r.ledger.Address(), nil
}

// Purchase collects the current price from the buyer's allowance and
// advances the epoch.
func (r *MemoryRig) Purchase(_ context.Context, params PurchaseParams) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.now().After(params.Deadline) {
		return nil, ErrDeadlineExceeded
	}
	if params.ExpectedEpoch != r.epoch {
		return nil, fmt.Errorf("%w: expected %d, at %d", ErrEpochAdvanced, params.ExpectedEpoch, r.epoch)
	}
	if params.MaxPrice == nil || r.price.Cmp(params.MaxPrice) > 0 {
		return nil, fmt.Errorf("%w: price %s, max %s", ErrPriceExceeded, r.price, params.MaxPrice)
	}

	paid := new(big.Int).Set(r.price)
	if err := r.ledger.TransferFrom(r.buyer, r.addr, paid); err != nil {
		return nil, fmt.Errorf("collecting payment: %w", err)
	}

	r.epoch++
	log.Infow("purchase settled",
		"recipient", params.Recipient.Hex(),
		"paid", paid.String(),
		"epoch", r.epoch-1)
	return paid, nil
}
