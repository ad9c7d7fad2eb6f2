// Package controller implements the custody-and-trigger core: the
// role-gated configuration record, the eligibility decision function, the
// mint execution state machine, and custody of the funds backing it. The
// off-chain monitor and the rig itself are external collaborators reached
// through the api and rig packages.
package controller

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	logging "github.com/ipfs/go-log"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/rig"
	"github.com/rigwatch/custodian/internal/roles"
	"github.com/rigwatch/custodian/internal/token"
)

var log = logging.Logger("controller")

const defaultPurchaseDeadline = 2 * time.Minute

// GasPriceSource reports the fee price the next transaction would pay.
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// FixedGasPrice is a GasPriceSource quoting a constant price, for memory
// mode and tests.
type FixedGasPrice struct{ Price *big.Int }

func (f FixedGasPrice) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.Price), nil
}

// Params carries the controller's required collaborators.
type Params struct {
	// Registry gates every mutating operation.
	Registry *roles.Registry
	// Rig is the initial target resource.
	Rig rig.Rig
	// Rigs resolves a target address into a Rig during hot-swap.
	Rigs rig.Source
	// Tokens resolves the rig's payment token address into a spendable
	// token bound to the controller's account.
	Tokens token.Source
	// Vault holds the controller's native currency.
	Vault token.NativeVault
	// Gas reports the current fee price for the gas guard.
	Gas GasPriceSource
	// Config is the initial mining configuration.
	Config MiningConfig
	// Account is the controller's own address: the holder of the payment
	// token balance and the default mint recipient.
	Account common.Address
}

// Option tweaks optional controller behavior.
type Option func(*Controller)

// WithClock overrides the time source. Test helper.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithEventSink replaces the default event recorder.
func WithEventSink(sink Sink) Option {
	return func(c *Controller) { c.events = sink }
}

// WithPurchaseDeadline sets the absolute deadline offset passed to the rig
// on every purchase.
func WithPurchaseDeadline(d time.Duration) Option {
	return func(c *Controller) { c.purchaseDeadline = d }
}

// Controller is the custody-and-trigger core. All mutable state (the
// config record, the target rig pointer, the last mint timestamp) sits
// behind one mutex and is committed only after every guard and external
// call has succeeded.
type Controller struct {
	registry *roles.Registry
	tokens   token.Source
	rigs     rig.Source
	vault    token.NativeVault
	gas      GasPriceSource
	account  common.Address

	events           Sink
	recorder         *Recorder
	now              func() time.Time
	purchaseDeadline time.Duration

	mu       sync.Mutex
	cfg      MiningConfig
	rig      rig.Rig
	lastMint time.Time

	minting     atomic.Bool
	withdrawing atomic.Bool
	phase       atomic.Value // MintPhase
}

// New validates the initial configuration and collaborators and returns a
// controller in the Idle phase with no mint recorded.
func New(params Params, opts ...Option) (*Controller, error) {
	if params.Registry == nil {
		return nil, fmt.Errorf("access registry is required")
	}
	if params.Rig == nil {
		return nil, fmt.Errorf("target rig is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if params.Gas == nil {
		return nil, fmt.Errorf("gas price source is required")
	}
	if params.Account == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}

	recorder := NewRecorder()
	c := &Controller{
		registry:         params.Registry,
		tokens:           params.Tokens,
		rigs:             params.Rigs,
		vault:            params.Vault,
		gas:              params.Gas,
		account:          params.Account,
		events:           recorder,
		recorder:         recorder,
		now:              time.Now,
		purchaseDeadline: defaultPurchaseDeadline,
		cfg:              params.Config.clone(),
		rig:              params.Rig,
	}
	c.phase.Store(PhaseIdle)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Registry exposes the access registry for role administration.
func (c *Controller) Registry() *roles.Registry { return c.registry }

// Account returns the controller's own address.
func (c *Controller) Account() common.Address { return c.account }

// Events returns the recent event ring, newest first. Empty when a custom
// sink replaced the default recorder.
func (c *Controller) Events() []Event {
	if c.recorder == nil {
		return nil
	}
	return c.recorder.Recent()
}

// Config returns a copy of the installed configuration record.
func (c *Controller) Config() MiningConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.clone()
}

// UpdateConfig replaces the whole configuration record. Owner only. A
// record failing validation leaves the installed one untouched.
func (c *Controller) UpdateConfig(caller common.Address, cfg MiningConfig) error {
	if err := c.registry.Require(roles.Owner, caller); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.cfg = cfg.clone()
	c.mu.Unlock()

	c.emit(EventConfigUpdated, map[string]interface{}{
		"caller":                 caller.Hex(),
		"max_mining_price":       cfg.MaxMiningPrice.String(),
		"min_profit_margin_bps":  cfg.MinProfitMargin,
		"max_mint_amount":        cfg.MaxMintAmount.String(),
		"min_mint_amount":        cfg.MinMintAmount.String(),
		"auto_mining_enabled":    cfg.AutoMiningEnabled,
		"cooldown_seconds":       int64(cfg.CooldownPeriod.Seconds()),
		"max_gas_price":          cfg.MaxGasPrice.String(),
		"time_based_mint_period": int64(cfg.TimeBasedMintPeriod.Seconds()),
	})
	return nil
}

// EmergencyStop unconditionally disables auto mining. Owner only,
// idempotent.
func (c *Controller) EmergencyStop(caller common.Address) error {
	if err := c.registry.Require(roles.Owner, caller); err != nil {
		return err
	}

	c.mu.Lock()
	c.cfg.AutoMiningEnabled = false
	c.mu.Unlock()

	log.Warnw("emergency stop", "caller", caller.Hex())
	c.emit(EventEmergencyStop, map[string]interface{}{"caller": caller.Hex()})
	return nil
}

// UpdateTargetRig redirects the controller to a different priced resource.
// Owner only. Subsequent eligibility and mint decisions run against the new
// target; in-flight decisions made against the old one are not patched up.
func (c *Controller) UpdateTargetRig(ctx context.Context, caller common.Address, newTarget common.Address) error {
	if err := c.registry.Require(roles.Owner, caller); err != nil {
		return err
	}
	if newTarget == (common.Address{}) {
		return ErrZeroAddress
	}
	if c.rigs == nil {
		return fmt.Errorf("no rig source configured, cannot hot-swap target")
	}

	next, err := c.rigs.Resolve(ctx, newTarget)
	if err != nil {
		return fmt.Errorf("resolving new target %s: %w", newTarget.Hex(), err)
	}

	c.mu.Lock()
	old := c.rig.Address()
	c.rig = next
	c.mu.Unlock()

	c.emit(EventRigUpdated, map[string]interface{}{
		"caller": caller.Hex(),
		"old":    old.Hex(),
		"new":    newTarget.Hex(),
	})
	return nil
}

// GrantRole and RevokeRole administer the registry through the controller
// so changes show up in the event stream.
func (c *Controller) GrantRole(caller common.Address, role roles.Role, addr common.Address) error {
	if err := c.registry.Grant(caller, role, addr); err != nil {
		return err
	}
	c.emit(EventRoleGranted, map[string]interface{}{
		"caller": caller.Hex(), "role": role.String(), "address": addr.Hex(),
	})
	return nil
}

func (c *Controller) RevokeRole(caller common.Address, role roles.Role, addr common.Address) error {
	if err := c.registry.Revoke(caller, role, addr); err != nil {
		return err
	}
	c.emit(EventRoleRevoked, map[string]interface{}{
		"caller": caller.Hex(), "role": role.String(), "address": addr.Hex(),
	})
	return nil
}

// snapshot copies the decision inputs under the lock. Everything derived
// from a snapshot is re-derived fresh by ExecuteMine before committing.
func (c *Controller) snapshot() (MiningConfig, rig.Rig, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.clone(), c.rig, c.lastMint
}

// paymentToken resolves the target rig's payment token to a spendable
// token bound to the controller's account.
func (c *Controller) paymentToken(ctx context.Context, target rig.Rig) (token.Token, error) {
	addr, err := target.PaymentToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying payment token: %w", err)
	}
	tok, err := c.tokens.Resolve(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("resolving payment token %s: %w", addr.Hex(), err)
	}
	return tok, nil
}
