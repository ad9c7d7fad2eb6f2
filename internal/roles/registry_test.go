package roles

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func TestNewRegistry(t *testing.T) {
	if _, err := NewRegistry(common.Address{}); !errors.Is(err, ErrZeroAddress) {
		t.Errorf("NewRegistry(zero) error = %v, want ErrZeroAddress", err)
	}

	r, err := NewRegistry(alice)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if !r.Has(Owner, alice) {
		t.Error("initial owner does not hold Owner role")
	}
	if r.Has(Manager, alice) {
		t.Error("initial owner unexpectedly holds Manager role")
	}
}

func TestGrantRevoke(t *testing.T) {
	r, _ := NewRegistry(alice)

	// non-owner cannot administer roles
	if err := r.Grant(bob, Manager, bob); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Grant by non-owner error = %v, want ErrUnauthorized", err)
	}

	if err := r.Grant(alice, Manager, bob); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if !r.Has(Manager, bob) {
		t.Error("bob should hold Manager after grant")
	}
	if r.Has(Owner, bob) {
		t.Error("bob should not hold Owner")
	}

	if err := r.Revoke(alice, Manager, bob); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if r.Has(Manager, bob) {
		t.Error("bob still holds Manager after revoke")
	}

	// revoking a role the address never held is a no-op
	if err := r.Revoke(alice, Manager, carol); err != nil {
		t.Errorf("Revoke of unheld role error = %v, want nil", err)
	}
}

func TestRolesOverlapIndependently(t *testing.T) {
	r, _ := NewRegistry(alice)
	if err := r.Grant(alice, Manager, alice); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if !r.Has(Owner, alice) || !r.Has(Manager, alice) {
		t.Error("alice should hold both roles")
	}
	if err := r.Revoke(alice, Manager, alice); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if !r.Has(Owner, alice) {
		t.Error("revoking Manager must not disturb Owner")
	}
}

func TestLastOwnerProtected(t *testing.T) {
	r, _ := NewRegistry(alice)

	if err := r.Revoke(alice, Owner, alice); !errors.Is(err, ErrLastOwner) {
		t.Errorf("Revoke last owner error = %v, want ErrLastOwner", err)
	}

	// with a second owner, the first may step down
	if err := r.Grant(alice, Owner, bob); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if err := r.Revoke(alice, Owner, alice); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if r.Has(Owner, alice) {
		t.Error("alice still owner after stepping down")
	}
	if !r.Has(Owner, bob) {
		t.Error("bob lost ownership")
	}
}

func TestMembers(t *testing.T) {
	r, _ := NewRegistry(alice)
	_ = r.Grant(alice, Manager, bob)
	_ = r.Grant(alice, Manager, carol)

	members := r.Members(Manager)
	if len(members) != 2 {
		t.Fatalf("Members(Manager) = %d addresses, want 2", len(members))
	}
	seen := map[common.Address]bool{}
	for _, m := range members {
		seen[m] = true
	}
	if !seen[bob] || !seen[carol] {
		t.Errorf("Members(Manager) = %v, want bob and carol", members)
	}
}
