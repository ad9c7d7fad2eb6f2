// Package roles implements the access registry gating every mutating
// operation of the controller. Principals are EVM-style addresses and
// capabilities are a small bitset per address: Owner governs custody,
// configuration and role administration; Manager may only trigger mints.
package roles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Role is a capability bit granted to an address.
type Role uint8

const (
	// Owner authorizes configuration changes, custody withdrawal, rig
	// hot-swap, emergency halt, and role administration.
	Owner Role = 1 << iota
	// Manager authorizes mint execution only.
	Manager
)

var (
	ErrUnauthorized = errors.New("caller lacks required role")
	ErrLastOwner    = errors.New("cannot revoke the last owner")
	ErrZeroAddress  = errors.New("zero address cannot hold a role")
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case Manager:
		return "manager"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Registry maps addresses to granted roles.
type Registry struct {
	mu     sync.RWMutex
	grants map[common.Address]Role
	owners int
}

// NewRegistry creates a registry with the given initial owner. Managers may
// be granted afterwards; at least one owner exists for the registry's
// whole lifetime.
func NewRegistry(owner common.Address) (*Registry, error) {
	if owner == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	return &Registry{
		grants: map[common.Address]Role{owner: Owner},
		owners: 1,
	}, nil
}

// Has reports whether addr holds role.
func (r *Registry) Has(role Role, addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grants[addr]&role != 0
}

// Require returns ErrUnauthorized unless addr holds role. Every mutating
// operation elsewhere calls this before touching any state.
func (r *Registry) Require(role Role, addr common.Address) error {
	if !r.Has(role, addr) {
		return fmt.Errorf("%w: %s is not %s", ErrUnauthorized, addr.Hex(), role)
	}
	return nil
}

// Grant gives addr the role. Only an owner may administer roles.
func (r *Registry) Grant(caller common.Address, role Role, addr common.Address) error {
	if err := r.Require(Owner, caller); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.grants[addr]
	if role == Owner && prev&Owner == 0 {
		r.owners++
	}
	r.grants[addr] = prev | role
	return nil
}

// Revoke removes the role from addr. Revoking the last owner is rejected so
// the controller can never become unadministrable.
func (r *Registry) Revoke(caller common.Address, role Role, addr common.Address) error {
	if err := r.Require(Owner, caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.grants[addr]
	if !ok || prev&role == 0 {
		return nil
	}
	if role == Owner {
		if r.owners == 1 {
			return ErrLastOwner
		}
		r.owners--
	}
	next := prev &^ role
	if next == 0 {
		delete(r.grants, addr)
	} else {
		r.grants[addr] = next
	}
	return nil
}

// Members returns every address holding role, in unspecified order.
func (r *Registry) Members(role Role) []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []common.Address
	for addr, granted := range r.grants {
		if granted&role != 0 {
			out = append(out, addr)
		}
	}
	return out
}
