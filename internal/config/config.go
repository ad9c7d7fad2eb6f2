// Package config loads the service configuration from file, environment
// and flags through viper. The mining knobs here are only the initial
// record; the installed record is owned by the controller and changed at
// runtime through its owner-gated update operation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/controller"
)

// Rig backend modes.
const (
	ModeMemory = "memory"
	ModeEVM    = "evm"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Rig     RigConfig
	Mining  MiningConfig
	Roles   RolesConfig
	Monitor MonitorConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level  string
	Format string
}

type RigConfig struct {
	// Mode selects the backend: "memory" simulates the rig in-process,
	// "evm" talks to deployed contracts over RPC.
	Mode string
	// RPCURL and PrivateKey configure the EVM client (evm mode only).
	RPCURL     string
	PrivateKey string
	// Address of the target rig contract. In memory mode an arbitrary
	// non-zero address identifying the simulated rig.
	Address string
	// InitialPrice quotes the simulated rig's starting price (memory mode).
	InitialPrice string
	// InitialFunds seeds the controller's simulated token balance (memory
	// mode).
	InitialFunds string
	// GasPrice is the fixed gas price quote used in memory mode.
	GasPrice string
	// PurchaseDeadline is the absolute deadline offset passed to the rig
	// on every purchase.
	PurchaseDeadline time.Duration
}

type MiningConfig struct {
	MaxMiningPrice      string
	MinProfitMarginBps  uint64
	MaxMintAmount       string
	MinMintAmount       string
	AutoMiningEnabled   bool
	CooldownPeriod      time.Duration
	MaxGasPrice         string
	TimeBasedMintPeriod time.Duration
}

type RolesConfig struct {
	Owner    string
	Managers []string
}

type MonitorConfig struct {
	// Interval between eligibility polls.
	Interval time.Duration
	// Recipient of mined output. Empty means the controller's own account.
	Recipient string
	// Caller is the manager address the monitor mints as.
	Caller string
	// ServerURL points the monitor at a custodian API.
	ServerURL string
	Metadata  string
}

// New creates the viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.custodian")

	v.SetEnvPrefix("CUSTODIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("rig.mode", ModeMemory)
	v.SetDefault("rig.initial_price", "500")
	v.SetDefault("rig.initial_funds", "1000000")
	v.SetDefault("rig.gas_price", "1000000000")
	v.SetDefault("rig.purchase_deadline", "2m")

	v.SetDefault("mining.max_mining_price", "1000")
	v.SetDefault("mining.min_profit_margin_bps", 500)
	v.SetDefault("mining.max_mint_amount", "100")
	v.SetDefault("mining.min_mint_amount", "1")
	v.SetDefault("mining.auto_mining_enabled", true)
	v.SetDefault("mining.cooldown_period", "5m")
	v.SetDefault("mining.max_gas_price", "100000000000")
	v.SetDefault("mining.time_based_mint_period", "24h")

	v.SetDefault("monitor.interval", "30s")
	v.SetDefault("monitor.server_url", "http://localhost:8080")

	return v
}

// Load reads the configuration and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		// a config file is optional; defaults, env and flags may be enough
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("server.host"),
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Rig: RigConfig{
			Mode:             v.GetString("rig.mode"),
			RPCURL:           v.GetString("rig.rpc_url"),
			PrivateKey:       v.GetString("rig.private_key"),
			Address:          v.GetString("rig.address"),
			InitialPrice:     v.GetString("rig.initial_price"),
			InitialFunds:     v.GetString("rig.initial_funds"),
			GasPrice:         v.GetString("rig.gas_price"),
			PurchaseDeadline: v.GetDuration("rig.purchase_deadline"),
		},
		Mining: MiningConfig{
			MaxMiningPrice:      v.GetString("mining.max_mining_price"),
			MinProfitMarginBps:  v.GetUint64("mining.min_profit_margin_bps"),
			MaxMintAmount:       v.GetString("mining.max_mint_amount"),
			MinMintAmount:       v.GetString("mining.min_mint_amount"),
			AutoMiningEnabled:   v.GetBool("mining.auto_mining_enabled"),
			CooldownPeriod:      v.GetDuration("mining.cooldown_period"),
			MaxGasPrice:         v.GetString("mining.max_gas_price"),
			TimeBasedMintPeriod: v.GetDuration("mining.time_based_mint_period"),
		},
		Roles: RolesConfig{
			Owner:    v.GetString("roles.owner"),
			Managers: v.GetStringSlice("roles.managers"),
		},
		Monitor: MonitorConfig{
			Interval:  v.GetDuration("monitor.interval"),
			Recipient: v.GetString("monitor.recipient"),
			Caller:    v.GetString("monitor.caller"),
			ServerURL: v.GetString("monitor.server_url"),
			Metadata:  v.GetString("monitor.metadata"),
		},
	}

	if cfg.Rig.Mode != ModeMemory && cfg.Rig.Mode != ModeEVM {
		return nil, fmt.Errorf("rig mode must be %q or %q, got %q", ModeMemory, ModeEVM, cfg.Rig.Mode)
	}
	if cfg.Rig.Mode == ModeEVM {
		if cfg.Rig.RPCURL == "" {
			return nil, fmt.Errorf("rig rpc url not set")
		}
		if cfg.Rig.PrivateKey == "" {
			return nil, fmt.Errorf("rig private key not set")
		}
		if !common.IsHexAddress(cfg.Rig.Address) {
			return nil, fmt.Errorf("rig address %q is not a valid address", cfg.Rig.Address)
		}
	}
	if cfg.Roles.Owner == "" {
		return nil, fmt.Errorf("roles owner not set")
	}
	if !common.IsHexAddress(cfg.Roles.Owner) {
		return nil, fmt.Errorf("roles owner %q is not a valid address", cfg.Roles.Owner)
	}
	for _, m := range cfg.Roles.Managers {
		if !common.IsHexAddress(m) {
			return nil, fmt.Errorf("roles manager %q is not a valid address", m)
		}
	}

	return cfg, nil
}

// MiningRecord converts the configured knobs into the controller's record,
// running the controller's own validation.
func (c *Config) MiningRecord() (controller.MiningConfig, error) {
	maxPrice, err := parseAmount(c.Mining.MaxMiningPrice, "mining.max_mining_price")
	if err != nil {
		return controller.MiningConfig{}, err
	}
	maxMint, err := parseAmount(c.Mining.MaxMintAmount, "mining.max_mint_amount")
	if err != nil {
		return controller.MiningConfig{}, err
	}
	minMint, err := parseAmount(c.Mining.MinMintAmount, "mining.min_mint_amount")
	if err != nil {
		return controller.MiningConfig{}, err
	}
	maxGas, err := parseAmount(c.Mining.MaxGasPrice, "mining.max_gas_price")
	if err != nil {
		return controller.MiningConfig{}, err
	}

	record := controller.MiningConfig{
		MaxMiningPrice:      maxPrice,
		MinProfitMargin:     c.Mining.MinProfitMarginBps,
		MaxMintAmount:       maxMint,
		MinMintAmount:       minMint,
		AutoMiningEnabled:   c.Mining.AutoMiningEnabled,
		CooldownPeriod:      c.Mining.CooldownPeriod,
		MaxGasPrice:         maxGas,
		TimeBasedMintPeriod: c.Mining.TimeBasedMintPeriod,
	}
	if err := record.Validate(); err != nil {
		return controller.MiningConfig{}, err
	}
	return record, nil
}

func parseAmount(s, key string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not a base-10 integer", key, s)
	}
	return n, nil
}
