package controller

import (
	"fmt"
	"math/big"
	"time"
)

const (
	maxCooldown   = 24 * time.Hour
	maxBasisPoint = 10_000
)

// MiningConfig is the single tunable record governing mint decisions. It is
// immutable once installed: UpdateConfig replaces the whole record
// atomically, never individual fields.
type MiningConfig struct {
	// MaxMiningPrice is the ceiling on the total payment for one mint, in
	// the payment token's smallest unit.
	MaxMiningPrice *big.Int
	// MinProfitMargin is an informational profitability threshold in basis
	// points (0-10000). It does not gate execution.
	MinProfitMargin uint64
	// MaxMintAmount and MinMintAmount bound the informational mint size
	// reported to the monitor. MaxMintAmount >= MinMintAmount always.
	MaxMintAmount *big.Int
	MinMintAmount *big.Int
	// AutoMiningEnabled is the global kill switch.
	AutoMiningEnabled bool
	// CooldownPeriod is the minimum spacing between successful mints. At
	// most one day.
	CooldownPeriod time.Duration
	// MaxGasPrice is the ceiling on the fee the controller is willing to
	// pay, in wei.
	MaxGasPrice *big.Int
	// TimeBasedMintPeriod is the staleness window after which the price
	// ceiling is waived and a mint is forced at the current price.
	TimeBasedMintPeriod time.Duration
}

// Validate checks the record's internal consistency. A record that fails
// validation is never installed.
func (c MiningConfig) Validate() error {
	if c.MaxMiningPrice == nil || c.MaxMiningPrice.Sign() <= 0 {
		return fmt.Errorf("%w: max mining price must be positive", ErrInvalidConfig)
	}
	if c.MinProfitMargin > maxBasisPoint {
		return fmt.Errorf("%w: min profit margin %d above %d basis points", ErrInvalidConfig, c.MinProfitMargin, maxBasisPoint)
	}
	if c.MaxMintAmount == nil || c.MinMintAmount == nil {
		return fmt.Errorf("%w: mint amount bounds must be set", ErrInvalidConfig)
	}
	if c.MaxMintAmount.Cmp(c.MinMintAmount) < 0 {
		return fmt.Errorf("%w: max mint amount %s below min %s", ErrInvalidConfig, c.MaxMintAmount, c.MinMintAmount)
	}
	if c.CooldownPeriod < 0 || c.CooldownPeriod > maxCooldown {
		return fmt.Errorf("%w: cooldown %s outside [0, %s]", ErrInvalidConfig, c.CooldownPeriod, maxCooldown)
	}
	if c.MaxGasPrice == nil || c.MaxGasPrice.Sign() <= 0 {
		return fmt.Errorf("%w: max gas price must be positive", ErrInvalidConfig)
	}
	if c.TimeBasedMintPeriod <= 0 {
		return fmt.Errorf("%w: time based mint period must be positive", ErrInvalidConfig)
	}
	return nil
}

// clone deep-copies the record so a caller can never mutate the installed
// one through shared big.Int pointers.
func (c MiningConfig) clone() MiningConfig {
	out := c
	out.MaxMiningPrice = new(big.Int).Set(c.MaxMiningPrice)
	out.MaxMintAmount = new(big.Int).Set(c.MaxMintAmount)
	out.MinMintAmount = new(big.Int).Set(c.MinMintAmount)
	out.MaxGasPrice = new(big.Int).Set(c.MaxGasPrice)
	return out
}
