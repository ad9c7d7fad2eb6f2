package controller

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// Status is the read-only aggregate the external monitor polls. It is a
// snapshot assembled outside any mint transaction and carries no freshness
// guarantee once returned.
type Status struct {
	Enabled       bool
	RigAddress    string
	CurrentPrice  *big.Int
	Epoch         uint64
	TokenBalance  *big.Int
	NativeBalance *big.Int
	LastMint      time.Time
	// NextCooldownEligible is when the cooldown guard stops rejecting;
	// NextTimeBasedEligible is when the price ceiling gets waived. Both
	// zero when no mint has happened yet.
	NextCooldownEligible  time.Time
	NextTimeBasedEligible time.Time
	PriceOK               bool
	TimeOK                bool
	Phase                 MintPhase
	Config                MiningConfig
}

// StatusReport assembles the current status. Read-only.
func (c *Controller) StatusReport(ctx context.Context) (*Status, error) {
	cfg, target, lastMint := c.snapshot()

	price, err := target.CurrentPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rig price: %w", err)
	}
	epoch, err := target.EpochID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rig epoch: %w", err)
	}

	payToken, err := c.paymentToken(ctx, target)
	if err != nil {
		return nil, err
	}
	balance, err := payToken.BalanceOf(ctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("reading payment token balance: %w", err)
	}

	var native *big.Int
	if c.vault != nil {
		native, err = c.vault.Balance(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading native balance: %w", err)
		}
	}

	priceOK, timeOK := evaluateConditions(cfg, price, lastMint, c.now())

	s := &Status{
		Enabled:       cfg.AutoMiningEnabled,
		RigAddress:    target.Address().Hex(),
		CurrentPrice:  price,
		Epoch:         epoch,
		TokenBalance:  balance,
		NativeBalance: native,
		LastMint:      lastMint,
		PriceOK:       priceOK,
		TimeOK:        timeOK,
		Phase:         c.Phase(),
		Config:        cfg,
	}
	if !lastMint.IsZero() {
		s.NextCooldownEligible = lastMint.Add(cfg.CooldownPeriod)
		s.NextTimeBasedEligible = lastMint.Add(cfg.TimeBasedMintPeriod)
	}
	return s, nil
}
