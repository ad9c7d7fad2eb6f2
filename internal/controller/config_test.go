package controller

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/roles"
)

func TestMiningConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *MiningConfig)
		wantErr bool
	}{
		{"valid", func(c *MiningConfig) {}, false},
		{"zero cooldown allowed", func(c *MiningConfig) { c.CooldownPeriod = 0 }, false},
		{"cooldown at one day", func(c *MiningConfig) { c.CooldownPeriod = 24 * time.Hour }, false},
		{"cooldown above one day", func(c *MiningConfig) { c.CooldownPeriod = 24*time.Hour + time.Second }, true},
		{"negative cooldown", func(c *MiningConfig) { c.CooldownPeriod = -time.Second }, true},
		{"max below min mint amount", func(c *MiningConfig) { c.MaxMintAmount = big.NewInt(0) }, true},
		{"nil mining price", func(c *MiningConfig) { c.MaxMiningPrice = nil }, true},
		{"zero mining price", func(c *MiningConfig) { c.MaxMiningPrice = big.NewInt(0) }, true},
		{"zero gas price", func(c *MiningConfig) { c.MaxGasPrice = big.NewInt(0) }, true},
		{"zero time based period", func(c *MiningConfig) { c.TimeBasedMintPeriod = 0 }, true},
		{"margin above 10000 bps", func(c *MiningConfig) { c.MinProfitMargin = 10_001 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestUpdateConfigRoundTrip(t *testing.T) {
	f := newFixture(t, defaultConfig(), 500, 10_000)

	next := MiningConfig{
		MaxMiningPrice:      big.NewInt(2500),
		MinProfitMargin:     750,
		MaxMintAmount:       big.NewInt(64),
		MinMintAmount:       big.NewInt(8),
		AutoMiningEnabled:   false,
		CooldownPeriod:      10 * time.Minute,
		MaxGasPrice:         big.NewInt(99),
		TimeBasedMintPeriod: 6 * time.Hour,
	}
	if err := f.ctrl.UpdateConfig(owner, next); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	got := f.ctrl.Config()
	if got.MaxMiningPrice.Cmp(next.MaxMiningPrice) != 0 ||
		got.MinProfitMargin != next.MinProfitMargin ||
		got.MaxMintAmount.Cmp(next.MaxMintAmount) != 0 ||
		got.MinMintAmount.Cmp(next.MinMintAmount) != 0 ||
		got.AutoMiningEnabled != next.AutoMiningEnabled ||
		got.CooldownPeriod != next.CooldownPeriod ||
		got.MaxGasPrice.Cmp(next.MaxGasPrice) != 0 ||
		got.TimeBasedMintPeriod != next.TimeBasedMintPeriod {
		t.Errorf("Config() = %+v, want %+v", got, next)
	}

	// mutating the caller's copy must not reach the installed record
	next.MaxMiningPrice.SetInt64(1)
	if f.ctrl.Config().MaxMiningPrice.Cmp(big.NewInt(2500)) != 0 {
		t.Error("installed config shares big.Int storage with caller")
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	f := newFixture(t, defaultConfig(), 500, 10_000)
	prior := f.ctrl.Config()

	bad := defaultConfig()
	bad.MaxMintAmount = big.NewInt(0) // below MinMintAmount
	if err := f.ctrl.UpdateConfig(owner, bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("UpdateConfig() error = %v, want ErrInvalidConfig", err)
	}

	got := f.ctrl.Config()
	if got.MaxMintAmount.Cmp(prior.MaxMintAmount) != 0 {
		t.Error("rejected update mutated the installed config")
	}
}

func TestUpdateConfigAuthorization(t *testing.T) {
	f := newFixture(t, defaultConfig(), 500, 10_000)

	for _, caller := range []struct {
		name string
		addr common.Address
	}{
		{"outsider", outsider},
		{"manager without owner", manager},
	} {
		t.Run(caller.name, func(t *testing.T) {
			err := f.ctrl.UpdateConfig(caller.addr, defaultConfig())
			if !errors.Is(err, roles.ErrUnauthorized) {
				t.Errorf("UpdateConfig() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestEmergencyStopIdempotent(t *testing.T) {
	f := newFixture(t, defaultConfig(), 500, 10_000)

	if err := f.ctrl.EmergencyStop(owner); err != nil {
		t.Fatalf("EmergencyStop() error = %v", err)
	}
	if f.ctrl.Config().AutoMiningEnabled {
		t.Error("auto mining still enabled after emergency stop")
	}

	// second call is a no-op, not an error
	if err := f.ctrl.EmergencyStop(owner); err != nil {
		t.Fatalf("second EmergencyStop() error = %v", err)
	}
	if f.ctrl.Config().AutoMiningEnabled {
		t.Error("auto mining re-enabled by second emergency stop")
	}

	if err := f.ctrl.EmergencyStop(manager); !errors.Is(err, roles.ErrUnauthorized) {
		t.Errorf("EmergencyStop() by manager error = %v, want ErrUnauthorized", err)
	}
}
