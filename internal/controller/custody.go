package controller

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/roles"
)

// AssetKind selects what Withdraw pays out.
type AssetKind string

const (
	AssetNative AssetKind = "native"
	AssetToken  AssetKind = "token"
)

// WithdrawParams describes one withdrawal. A nil or zero Amount means "all
// available". TokenAddress selects which token when Asset is AssetToken;
// left zero it defaults to the current rig's payment token.
type WithdrawParams struct {
	Asset        AssetKind
	TokenAddress common.Address
	To           common.Address
	Amount       *big.Int
}

// Withdraw moves custody funds to the owner-designated address. Owner
// only, non-reentrant. Returns the amount actually withdrawn.
func (c *Controller) Withdraw(ctx context.Context, caller common.Address, params WithdrawParams) (*big.Int, error) {
	if err := c.registry.Require(roles.Owner, caller); err != nil {
		return nil, err
	}
	if params.To == (common.Address{}) {
		return nil, fmt.Errorf("%w: withdrawal destination", ErrZeroAddress)
	}

	if !c.withdrawing.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: withdrawal", ErrReentrantCall)
	}
	defer c.withdrawing.Store(false)

	var (
		amount *big.Int
		err    error
	)
	switch params.Asset {
	case AssetNative:
		amount, err = c.withdrawNative(ctx, params)
	case AssetToken:
		amount, err = c.withdrawToken(ctx, params)
	default:
		return nil, fmt.Errorf("unknown asset kind %q", params.Asset)
	}
	if err != nil {
		return nil, err
	}

	c.emit(EventWithdrawal, map[string]interface{}{
		"caller": caller.Hex(),
		"asset":  string(params.Asset),
		"to":     params.To.Hex(),
		"amount": amount.String(),
	})
	return amount, nil
}

func (c *Controller) withdrawNative(ctx context.Context, params WithdrawParams) (*big.Int, error) {
	if c.vault == nil {
		return nil, fmt.Errorf("no native vault configured")
	}
	balance, err := c.vault.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading native balance: %w", err)
	}
	amount, err := resolveAmount(params.Amount, balance)
	if err != nil {
		return nil, err
	}
	if err := c.vault.Transfer(ctx, params.To, amount); err != nil {
		return nil, fmt.Errorf("native withdrawal: %w", err)
	}
	return amount, nil
}

func (c *Controller) withdrawToken(ctx context.Context, params WithdrawParams) (*big.Int, error) {
	tokenAddr := params.TokenAddress
	if tokenAddr == (common.Address{}) {
		_, target, _ := c.snapshot()
		tokenAddr, _ = target.PaymentToken(ctx)
		if tokenAddr == (common.Address{}) {
			return nil, fmt.Errorf("cannot determine payment token for withdrawal")
		}
	}

	tok, err := c.tokens.Resolve(ctx, tokenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving token %s: %w", tokenAddr.Hex(), err)
	}
	balance, err := tok.BalanceOf(ctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("reading token balance: %w", err)
	}
	amount, err := resolveAmount(params.Amount, balance)
	if err != nil {
		return nil, err
	}
	if err := tok.Transfer(ctx, params.To, amount); err != nil {
		return nil, fmt.Errorf("token withdrawal: %w", err)
	}
	return amount, nil
}

// resolveAmount applies the "zero means everything" rule and rejects
// requests above current holdings.
func resolveAmount(requested, balance *big.Int) (*big.Int, error) {
	if requested == nil || requested.Sign() == 0 {
		return new(big.Int).Set(balance), nil
	}
	if requested.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrAmountExceedsBalance)
	}
	if requested.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: requested %s, holding %s", ErrAmountExceedsBalance, requested, balance)
	}
	return new(big.Int).Set(requested), nil
}
