package controller

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/rig"
	"github.com/rigwatch/custodian/internal/roles"
)

// MintPhase is the executor's current position in its state machine:
// Idle -> Validating -> Paying -> back to Idle. Settled and Rejected
// outcomes are reported through the mint_completed event and the returned
// error, not held as resting states.
type MintPhase string

const (
	PhaseIdle       MintPhase = "idle"
	PhaseValidating MintPhase = "validating"
	PhasePaying     MintPhase = "paying"
)

// Phase returns the executor's current phase.
func (c *Controller) Phase() MintPhase {
	return c.phase.Load().(MintPhase)
}

// MintResult reports one settled mint. The quantity of the underlying
// asset produced is the rig's own computation and is not reported here;
// query the rig directly for it.
type MintResult struct {
	Recipient common.Address
	PricePaid *big.Int
	Epoch     uint64
	At        time.Time
}

// ExecuteMine re-validates eligibility with fresh data, pays the rig, and
// records the outcome. Manager only, non-reentrant. The guard sequence is
// evaluated in order and the first failure aborts the whole call with no
// side effects; lastMint is committed only after the rig reports success.
func (c *Controller) ExecuteMine(ctx context.Context, caller, recipient common.Address, metadata string) (*MintResult, error) {
	if err := c.registry.Require(roles.Manager, caller); err != nil {
		return nil, err
	}
	if recipient == (common.Address{}) {
		return nil, fmt.Errorf("%w: recipient", ErrZeroAddress)
	}

	if !c.minting.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: mint", ErrReentrantCall)
	}
	defer func() {
		c.phase.Store(PhaseIdle)
		c.minting.Store(false)
	}()
	c.phase.Store(PhaseValidating)

	cfg, target, lastMint := c.snapshot()

	if !cfg.AutoMiningEnabled {
		return nil, ErrMiningDisabled
	}

	now := c.now()
	if !lastMint.IsZero() {
		if next := lastMint.Add(cfg.CooldownPeriod); now.Before(next) {
			return nil, fmt.Errorf("%w: next mint at %s", ErrCooldownActive, next.UTC().Format(time.RFC3339))
		}
	}

	gasPrice, err := c.gas.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading gas price: %w", err)
	}
	if gasPrice.Cmp(cfg.MaxGasPrice) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrGasPriceTooHigh, gasPrice, cfg.MaxGasPrice)
	}

	// Never trust values from an earlier eligibility check: the monitor's
	// decision is arbitrarily stale by the time this call runs.
	price, err := target.CurrentPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rig price: %w", err)
	}
	epoch, err := target.EpochID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rig epoch: %w", err)
	}

	priceOK, timeOK := evaluateConditions(cfg, price, lastMint, now)
	if !priceOK && !timeOK {
		return nil, fmt.Errorf("%w: price %s, ceiling %s", ErrNotEligible, price, cfg.MaxMiningPrice)
	}

	payToken, err := c.paymentToken(ctx, target)
	if err != nil {
		return nil, err
	}
	balance, err := payToken.BalanceOf(ctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("reading payment token balance: %w", err)
	}
	if balance.Cmp(price) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, price)
	}

	// Forced time-based mint accepts whatever the rig currently charges;
	// the normal path holds the rig to the configured ceiling. The epoch
	// we read is passed along so the rig rejects if it advanced meanwhile.
	maxPrice := cfg.MaxMiningPrice
	if !priceOK {
		maxPrice = price
	}

	c.phase.Store(PhasePaying)
	if err := payToken.Approve(ctx, target.Address(), price); err != nil {
		return nil, fmt.Errorf("approving rig spend: %w", err)
	}
	paid, err := target.Purchase(ctx, rig.PurchaseParams{
		Recipient:     recipient,
		ExpectedEpoch: epoch,
		Deadline:      now.Add(c.purchaseDeadline),
		MaxPrice:      maxPrice,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}

	// Commit point: the only local mutation, and only after the rig
	// reported success.
	c.mu.Lock()
	c.lastMint = now
	c.mu.Unlock()

	log.Infow("mint settled",
		"recipient", recipient.Hex(),
		"paid", paid.String(),
		"epoch", epoch,
		"reason", mintReason(priceOK))
	c.emit(EventMintCompleted, map[string]interface{}{
		"caller":     caller.Hex(),
		"recipient":  recipient.Hex(),
		"price_paid": paid.String(),
		"epoch":      epoch,
		"reason":     string(mintReason(priceOK)),
	})

	return &MintResult{
		Recipient: recipient,
		PricePaid: paid,
		Epoch:     epoch,
		At:        now,
	}, nil
}

func mintReason(priceOK bool) Reason {
	if priceOK {
		return ReasonPrice
	}
	return ReasonTime
}
