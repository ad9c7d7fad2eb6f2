package config

import (
	"strings"
	"testing"
	"time"
)

const owner = "0x00000000000000000000000000000000000000aa"

func validViper() map[string]interface{} {
	return map[string]interface{}{
		"roles.owner": owner,
	}
}

func loadWith(t *testing.T, overrides map[string]interface{}) (*Config, error) {
	t.Helper()
	v := New()
	// keep the loader away from any config.yaml in the working directory
	v.SetConfigFile("/dev/null")
	v.SetConfigType("yaml")
	for key, val := range overrides {
		v.Set(key, val)
	}
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWith(t, validViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Rig.Mode != ModeMemory {
		t.Errorf("rig mode = %s, want memory", cfg.Rig.Mode)
	}
	if cfg.Mining.CooldownPeriod != 5*time.Minute {
		t.Errorf("cooldown = %s, want 5m", cfg.Mining.CooldownPeriod)
	}
	if cfg.Roles.Owner != owner {
		t.Errorf("owner = %s, want %s", cfg.Roles.Owner, owner)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		wantIn    string
	}{
		{
			name:      "missing owner",
			overrides: map[string]interface{}{},
			wantIn:    "owner",
		},
		{
			name: "invalid owner address",
			overrides: map[string]interface{}{
				"roles.owner": "not-an-address",
			},
			wantIn: "not a valid address",
		},
		{
			name: "invalid manager address",
			overrides: map[string]interface{}{
				"roles.owner":    owner,
				"roles.managers": []string{"0x123"},
			},
			wantIn: "not a valid address",
		},
		{
			name: "unknown rig mode",
			overrides: map[string]interface{}{
				"roles.owner": owner,
				"rig.mode":    "simulated",
			},
			wantIn: "rig mode",
		},
		{
			name: "evm mode without rpc url",
			overrides: map[string]interface{}{
				"roles.owner": owner,
				"rig.mode":    ModeEVM,
			},
			wantIn: "rpc url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWith(t, tt.overrides)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("Load() error = %q, want it to mention %q", err, tt.wantIn)
			}
		})
	}
}

func TestMiningRecord(t *testing.T) {
	cfg, err := loadWith(t, validViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	record, err := cfg.MiningRecord()
	if err != nil {
		t.Fatalf("MiningRecord() error = %v", err)
	}
	if record.MaxMiningPrice.String() != "1000" {
		t.Errorf("MaxMiningPrice = %s, want 1000", record.MaxMiningPrice)
	}
	if record.TimeBasedMintPeriod != 24*time.Hour {
		t.Errorf("TimeBasedMintPeriod = %s, want 24h", record.TimeBasedMintPeriod)
	}

	cfg.Mining.MaxMiningPrice = "lots"
	if _, err := cfg.MiningRecord(); err == nil {
		t.Error("MiningRecord() with non-numeric price succeeded, want error")
	}

	cfg.Mining.MaxMiningPrice = "0"
	if _, err := cfg.MiningRecord(); err == nil {
		t.Error("MiningRecord() with zero price succeeded, want validation error")
	}
}
