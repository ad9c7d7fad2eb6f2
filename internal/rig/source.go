package rig

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/evm"
)

// Source resolves a rig address into a usable Rig. The controller uses it
// during target hot-swap.
type Source interface {
	Resolve(ctx context.Context, addr common.Address) (Rig, error)
}

// EVMSource resolves any address into an EVMRig over a shared client.
type EVMSource struct {
	Client *evm.Client
}

func (s EVMSource) Resolve(_ context.Context, addr common.Address) (Rig, error) {
	return NewEVMRig(s.Client, addr), nil
}

// MemorySource resolves only rigs registered with it. Used in memory mode,
// where a rig must be simulated before it can be targeted.
type MemorySource struct {
	mu   sync.RWMutex
	rigs map[common.Address]*MemoryRig
}

func NewMemorySource(rigs ...*MemoryRig) *MemorySource {
	s := &MemorySource{rigs: make(map[common.Address]*MemoryRig)}
	for _, r := range rigs {
		s.rigs[r.Address()] = r
	}
	return s
}

func (s *MemorySource) Add(r *MemoryRig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rigs[r.Address()] = r
}

func (s *MemorySource) Resolve(_ context.Context, addr common.Address) (Rig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rigs[addr]
	if !ok {
		return nil, fmt.Errorf("no rig simulated at %s", addr.Hex())
	}
	return r, nil
}
