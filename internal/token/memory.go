package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	logging "github.com/ipfs/go-log"

	"github.com/ethereum/go-ethereum/common"
)

var log = logging.Logger("token/memory")

// MemoryLedger is an in-memory token ledger that mimics the ERC20 surface,
// for local development and tests. One ledger instance is one token; the
// allowance map follows ERC20 semantics (owner -> spender -> amount).
type MemoryLedger struct {
	addr common.Address

	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewMemoryLedger creates an empty ledger identified by addr.
func NewMemoryLedger(addr common.Address) *MemoryLedger {
	return &MemoryLedger{
		addr:       addr,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (l *MemoryLedger) Address() common.Address { return l.addr }

// Mint credits amount to addr. Test/dev helper, not part of the Token
// interface.
func (l *MemoryLedger) Mint(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, amount)
}

func (l *MemoryLedger) credit(addr common.Address, amount *big.Int) {
	cur, ok := l.balances[addr]
	if !ok {
		cur = new(big.Int)
		l.balances[addr] = cur
	}
	cur.Add(cur, amount)
}

func (l *MemoryLedger) debit(addr common.Address, amount *big.Int) error {
	cur, ok := l.balances[addr]
	if !ok || cur.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, addr.Hex(), cur, amount)
	}
	cur.Sub(cur, amount)
	return nil
}

func (l *MemoryLedger) balanceOf(addr common.Address) *big.Int {
	if cur, ok := l.balances[addr]; ok {
		return new(big.Int).Set(cur)
	}
	return new(big.Int)
}

// Holder binds the ledger to one account, yielding the Token (and
// NativeVault) view from that account's perspective.
func (l *MemoryLedger) Holder(addr common.Address) *MemoryHolder {
	return &MemoryHolder{ledger: l, owner: addr}
}

// MemoryHolder is the per-account view over a MemoryLedger. It implements
// both Token and NativeVault.
type MemoryHolder struct {
	ledger *MemoryLedger
	owner  common.Address
}

func (h *MemoryHolder) Address() common.Address { return h.ledger.addr }

func (h *MemoryHolder) Owner() common.Address { return h.owner }

func (h *MemoryHolder) BalanceOf(_ context.Context, addr common.Address) (*big.Int, error) {
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()
	return h.ledger.balanceOf(addr), nil
}

func (h *MemoryHolder) Balance(ctx context.Context) (*big.Int, error) {
	return h.BalanceOf(ctx, h.owner)
}

func (h *MemoryHolder) Approve(_ context.Context, spender common.Address, amount *big.Int) error {
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()

	spenders, ok := h.ledger.allowances[h.owner]
	if !ok {
		spenders = make(map[common.Address]*big.Int)
		h.ledger.allowances[h.owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
	log.Debugw("approved spender",
		"owner", h.owner.Hex(),
		"spender", spender.Hex(),
		"amount", amount.String())
	return nil
}

func (h *MemoryHolder) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()

	if err := h.ledger.debit(h.owner, amount); err != nil {
		return err
	}
	h.ledger.credit(to, amount)
	return nil
}

// TransferFrom pulls amount from owner into the caller's balance, consuming
// the caller's allowance. Used by the in-memory rig to collect payment.
func (l *MemoryLedger) TransferFrom(owner, spender common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := new(big.Int)
	if spenders, ok := l.allowances[owner]; ok {
		if a, ok := spenders[spender]; ok {
			allowance = a
		}
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: allowance %s below %s", ErrInsufficientFunds, allowance, amount)
	}
	if err := l.debit(owner, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	l.credit(spender, amount)
	return nil
}
