package controller

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// Reason classifies why a mint is (or is not) currently allowed.
type Reason string

const (
	// ReasonPrice: the rig's price is at or under the configured ceiling.
	ReasonPrice Reason = "price"
	// ReasonTime: the staleness window since the last mint has elapsed, so
	// the ceiling is waived.
	ReasonTime Reason = "time"
	// ReasonNone: neither condition holds.
	ReasonNone Reason = "none"
)

// Eligibility is the outcome of one eligibility check. It is a snapshot:
// nothing prevents the price or epoch from moving the moment it returns,
// which is why ExecuteMine re-derives everything itself.
type Eligibility struct {
	Eligible          bool
	Reason            Reason
	CurrentPrice      *big.Int
	RecommendedAmount *big.Int
	PriceOK           bool
	TimeOK            bool
	CheckedAt         time.Time
}

// CheckEligibility computes whether a mint would currently be allowed and
// why. Read-only, side-effect free; it never caches and never writes.
func (c *Controller) CheckEligibility(ctx context.Context) (*Eligibility, error) {
	cfg, target, lastMint := c.snapshot()

	price, err := target.CurrentPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rig price: %w", err)
	}

	now := c.now()
	priceOK, timeOK := evaluateConditions(cfg, price, lastMint, now)

	out := &Eligibility{
		Eligible:          priceOK || timeOK,
		Reason:            ReasonNone,
		CurrentPrice:      price,
		RecommendedAmount: new(big.Int),
		PriceOK:           priceOK,
		TimeOK:            timeOK,
		CheckedAt:         now,
	}
	// Price-based takes reporting priority when both hold; either alone is
	// sufficient to authorize.
	switch {
	case priceOK:
		out.Reason = ReasonPrice
	case timeOK:
		out.Reason = ReasonTime
	}
	if out.Eligible {
		out.RecommendedAmount = new(big.Int).Set(cfg.MaxMintAmount)
	}
	return out, nil
}

// evaluateConditions is the pure decision core shared by eligibility checks
// and the executor's fresh re-validation.
func evaluateConditions(cfg MiningConfig, price *big.Int, lastMint, now time.Time) (priceOK, timeOK bool) {
	priceOK = price.Cmp(cfg.MaxMiningPrice) <= 0
	// lastMint zero means no mint has ever happened: the staleness window
	// is trivially elapsed.
	timeOK = lastMint.IsZero() || !now.Before(lastMint.Add(cfg.TimeBasedMintPeriod))
	return priceOK, timeOK
}
