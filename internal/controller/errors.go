package controller

import "errors"

// Guard and validation failures raised by the controller itself. Rig-side
// rejections (epoch race, deadline, resource price check) are surfaced from
// the rig package unchanged; role failures come from the roles package.
var (
	// validation
	ErrInvalidConfig        = errors.New("invalid mining configuration")
	ErrZeroAddress          = errors.New("zero address not allowed")
	ErrAmountExceedsBalance = errors.New("requested amount exceeds holdings")

	// mint guards
	ErrMiningDisabled      = errors.New("auto mining disabled")
	ErrCooldownActive      = errors.New("cooldown active")
	ErrGasPriceTooHigh     = errors.New("gas price above configured maximum")
	ErrNotEligible         = errors.New("neither price nor time condition holds")
	ErrInsufficientBalance = errors.New("payment token balance below current price")

	// one execution in flight at a time
	ErrReentrantCall = errors.New("operation already in progress")
)
