package token

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/evm"
)

const erc20ABIJSON = `[
  {"name":"balanceOf","type":"function","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"approve","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"transfer","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(s string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return &parsed
}

// ERC20 implements Token against a deployed ERC20 contract, holding and
// spending from the client's signing account.
type ERC20 struct {
	client *evm.Client
	addr   common.Address
}

func NewERC20(client *evm.Client, addr common.Address) *ERC20 {
	return &ERC20{client: client, addr: addr}
}

func (t *ERC20) Address() common.Address { return t.addr }

func (t *ERC20) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	out, err := t.client.CallView(ctx, t.addr, erc20ABI, "balanceOf", addr)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", addr.Hex(), err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output type %T", out[0])
	}
	return balance, nil
}

func (t *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	if _, err := t.client.Transact(ctx, t.addr, nil, erc20ABI, "approve", spender, amount); err != nil {
		return fmt.Errorf("approve %s for %s: %w", spender.Hex(), amount, err)
	}
	return nil
}

func (t *ERC20) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if _, err := t.client.Transact(ctx, t.addr, nil, erc20ABI, "transfer", to, amount); err != nil {
		return fmt.Errorf("%w: %s to %s: %v", ErrTransferFailed, amount, to.Hex(), err)
	}
	return nil
}

// EVMVault implements NativeVault over the client's signing account.
type EVMVault struct {
	client *evm.Client
}

func NewEVMVault(client *evm.Client) *EVMVault {
	return &EVMVault{client: client}
}

func (v *EVMVault) Balance(ctx context.Context) (*big.Int, error) {
	return v.client.BalanceAt(ctx, v.client.From())
}

func (v *EVMVault) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if err := v.client.TransferNative(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: native %s to %s: %v", ErrTransferFailed, amount, to.Hex(), err)
	}
	return nil
}
