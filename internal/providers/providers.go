// Package providers constructs the controller's collaborators from the
// service configuration, for fx wiring in the serve command. The rig mode
// decides the whole backend family: memory spins up an in-process
// simulation, evm connects real contracts over RPC.
package providers

import (
	"context"
	"fmt"
	"math/big"

	logging "github.com/ipfs/go-log"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/config"
	"github.com/rigwatch/custodian/internal/controller"
	"github.com/rigwatch/custodian/internal/evm"
	"github.com/rigwatch/custodian/internal/rig"
	"github.com/rigwatch/custodian/internal/roles"
	"github.com/rigwatch/custodian/internal/token"
)

var log = logging.Logger("providers")

// memoryAccount is the controller's simulated custody account in memory
// mode.
var memoryAccount = common.HexToAddress("0x00000000000000000000000000000000c0570d1a")

// memoryTokenAddr identifies the simulated payment token ledger.
var memoryTokenAddr = common.HexToAddress("0x000000000000000000000000000000007060c3e4")

// memoryRigAddr is used when no rig address is configured in memory mode.
var memoryRigAddr = common.HexToAddress("0x00000000000000000000000000000000000f0619")

// Backends bundles everything mode-dependent.
type Backends struct {
	Rig     rig.Rig
	Rigs    rig.Source
	Tokens  token.Source
	Vault   token.NativeVault
	Gas     controller.GasPriceSource
	Account common.Address
}

// ProvideRegistry builds the access registry from the configured owner and
// managers.
func ProvideRegistry(cfg *config.Config) (*roles.Registry, error) {
	owner := common.HexToAddress(cfg.Roles.Owner)
	registry, err := roles.NewRegistry(owner)
	if err != nil {
		return nil, fmt.Errorf("creating access registry: %w", err)
	}
	for _, m := range cfg.Roles.Managers {
		if err := registry.Grant(owner, roles.Manager, common.HexToAddress(m)); err != nil {
			return nil, fmt.Errorf("granting manager %s: %w", m, err)
		}
	}
	return registry, nil
}

// ProvideBackends builds the rig, token, vault and gas backends for the
// configured mode.
func ProvideBackends(cfg *config.Config) (*Backends, error) {
	switch cfg.Rig.Mode {
	case config.ModeMemory:
		return memoryBackends(cfg)
	case config.ModeEVM:
		return evmBackends(cfg)
	default:
		return nil, fmt.Errorf("unknown rig mode %q", cfg.Rig.Mode)
	}
}

func memoryBackends(cfg *config.Config) (*Backends, error) {
	price, ok := new(big.Int).SetString(cfg.Rig.InitialPrice, 10)
	if !ok {
		return nil, fmt.Errorf("rig.initial_price %q is not a base-10 integer", cfg.Rig.InitialPrice)
	}
	funds, ok := new(big.Int).SetString(cfg.Rig.InitialFunds, 10)
	if !ok {
		return nil, fmt.Errorf("rig.initial_funds %q is not a base-10 integer", cfg.Rig.InitialFunds)
	}
	gasPrice, ok := new(big.Int).SetString(cfg.Rig.GasPrice, 10)
	if !ok {
		return nil, fmt.Errorf("rig.gas_price %q is not a base-10 integer", cfg.Rig.GasPrice)
	}

	rigAddr := memoryRigAddr
	if cfg.Rig.Address != "" {
		if !common.IsHexAddress(cfg.Rig.Address) {
			return nil, fmt.Errorf("rig address %q is not a valid address", cfg.Rig.Address)
		}
		rigAddr = common.HexToAddress(cfg.Rig.Address)
	}

	ledger := token.NewMemoryLedger(memoryTokenAddr)
	ledger.Mint(memoryAccount, funds)
	simRig := rig.NewMemoryRig(rigAddr, ledger, memoryAccount, price)

	log.Infow("memory backends ready",
		"rig", rigAddr.Hex(),
		"account", memoryAccount.Hex(),
		"initial_price", price.String(),
		"initial_funds", funds.String())

	return &Backends{
		Rig:     simRig,
		Rigs:    rig.NewMemorySource(simRig),
		Tokens:  token.NewMemorySource(memoryAccount, ledger),
		Vault:   ledger.Holder(memoryAccount),
		Gas:     controller.FixedGasPrice{Price: gasPrice},
		Account: memoryAccount,
	}, nil
}

func evmBackends(cfg *config.Config) (*Backends, error) {
	client, err := evm.Dial(context.Background(), cfg.Rig.RPCURL, cfg.Rig.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("connecting EVM client: %w", err)
	}

	rigAddr := common.HexToAddress(cfg.Rig.Address)
	log.Infow("evm backends ready",
		"rpc", cfg.Rig.RPCURL,
		"rig", rigAddr.Hex(),
		"account", client.From().Hex())

	return &Backends{
		Rig:     rig.NewEVMRig(client, rigAddr),
		Rigs:    rig.EVMSource{Client: client},
		Tokens:  token.ERC20Source{Client: client},
		Vault:   token.NewEVMVault(client),
		Gas:     client,
		Account: client.From(),
	}, nil
}

// ProvideController assembles the controller from the registry and the
// mode-dependent backends.
func ProvideController(cfg *config.Config, registry *roles.Registry, backends *Backends) (*controller.Controller, error) {
	record, err := cfg.MiningRecord()
	if err != nil {
		return nil, fmt.Errorf("building initial mining config: %w", err)
	}

	opts := []controller.Option{}
	if cfg.Rig.PurchaseDeadline > 0 {
		opts = append(opts, controller.WithPurchaseDeadline(cfg.Rig.PurchaseDeadline))
	}

	return controller.New(controller.Params{
		Registry: registry,
		Rig:      backends.Rig,
		Rigs:     backends.Rigs,
		Tokens:   backends.Tokens,
		Vault:    backends.Vault,
		Gas:      backends.Gas,
		Config:   record,
		Account:  backends.Account,
	}, opts...)
}
