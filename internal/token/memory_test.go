package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ledgerAddr = common.HexToAddress("0x0000000000000000000000000000000000000202")
	holderA    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	holderB    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	spender    = common.HexToAddress("0x0000000000000000000000000000000000000101")
)

func TestMemoryLedgerTransfer(t *testing.T) {
	ledger := NewMemoryLedger(ledgerAddr)
	ledger.Mint(holderA, big.NewInt(1000))
	ctx := context.Background()

	a := ledger.Holder(holderA)
	if err := a.Transfer(ctx, holderB, big.NewInt(300)); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	got, _ := a.Balance(ctx)
	if got.Int64() != 700 {
		t.Errorf("A balance = %s, want 700", got)
	}
	got, _ = a.BalanceOf(ctx, holderB)
	if got.Int64() != 300 {
		t.Errorf("B balance = %s, want 300", got)
	}

	if err := a.Transfer(ctx, holderB, big.NewInt(701)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("over-transfer error = %v, want ErrInsufficientFunds", err)
	}
}

func TestMemoryLedgerAllowance(t *testing.T) {
	ledger := NewMemoryLedger(ledgerAddr)
	ledger.Mint(holderA, big.NewInt(1000))
	ctx := context.Background()

	// no allowance yet
	if err := ledger.TransferFrom(holderA, spender, big.NewInt(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("TransferFrom without allowance error = %v, want ErrInsufficientFunds", err)
	}

	if err := ledger.Holder(holderA).Approve(ctx, spender, big.NewInt(500)); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := ledger.TransferFrom(holderA, spender, big.NewInt(400)); err != nil {
		t.Fatalf("TransferFrom() error = %v", err)
	}

	// allowance is consumed, not reset
	if err := ledger.TransferFrom(holderA, spender, big.NewInt(101)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("TransferFrom above remaining allowance error = %v, want ErrInsufficientFunds", err)
	}
	if err := ledger.TransferFrom(holderA, spender, big.NewInt(100)); err != nil {
		t.Errorf("TransferFrom of remaining allowance error = %v", err)
	}

	balance, _ := ledger.Holder(spender).Balance(ctx)
	if balance.Int64() != 500 {
		t.Errorf("spender balance = %s, want 500", balance)
	}
}

func TestMemorySourceResolve(t *testing.T) {
	ledger := NewMemoryLedger(ledgerAddr)
	ledger.Mint(holderA, big.NewInt(42))
	src := NewMemorySource(holderA, ledger)
	ctx := context.Background()

	tok, err := src.Resolve(ctx, ledgerAddr)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// the resolved token is bound to the holder's account
	balance, _ := tok.BalanceOf(ctx, holderA)
	if balance.Int64() != 42 {
		t.Errorf("balance = %s, want 42", balance)
	}

	if _, err := src.Resolve(ctx, spender); err == nil {
		t.Error("Resolve() of unregistered ledger succeeded, want error")
	}
}
