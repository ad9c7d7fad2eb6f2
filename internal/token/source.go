package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/evm"
)

// Source resolves a token contract address into a Token bound to the
// controller's account. Rig hot-swaps can change the payment token, so the
// controller resolves it fresh each time rather than caching one.
type Source interface {
	Resolve(ctx context.Context, addr common.Address) (Token, error)
}

// ERC20Source resolves any address into an ERC20 over a shared client.
type ERC20Source struct {
	Client *evm.Client
}

func (s ERC20Source) Resolve(_ context.Context, addr common.Address) (Token, error) {
	return NewERC20(s.Client, addr), nil
}

// MemorySource resolves only ledgers registered with it, yielding the
// holder's view. Used in memory mode.
type MemorySource struct {
	holder common.Address

	mu      sync.RWMutex
	ledgers map[common.Address]*MemoryLedger
}

func NewMemorySource(holder common.Address, ledgers ...*MemoryLedger) *MemorySource {
	s := &MemorySource{
		holder:  holder,
		ledgers: make(map[common.Address]*MemoryLedger),
	}
	for _, l := range ledgers {
		s.ledgers[l.Address()] = l
	}
	return s
}

func (s *MemorySource) Add(l *MemoryLedger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.Address()] = l
}

func (s *MemorySource) Resolve(_ context.Context, addr common.Address) (Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[addr]
	if !ok {
		return nil, fmt.Errorf("no ledger simulated at %s", addr.Hex())
	}
	return l.Holder(s.holder), nil
}
