// Package models holds the request and response shapes of the custodian
// HTTP API.
package models

import "time"

// StatusResponse mirrors the controller's status aggregate for the
// monitor. Money amounts travel as base-10 strings to survive JSON number
// precision.
type StatusResponse struct {
	Enabled               bool       `json:"enabled"`
	Phase                 string     `json:"phase"`
	RigAddress            string     `json:"rig_address"`
	CurrentPrice          string     `json:"current_price"`
	Epoch                 uint64     `json:"epoch"`
	TokenBalance          string     `json:"token_balance"`
	NativeBalance         string     `json:"native_balance,omitempty"`
	LastMint              *time.Time `json:"last_mint,omitempty"`
	NextCooldownEligible  *time.Time `json:"next_cooldown_eligible,omitempty"`
	NextTimeBasedEligible *time.Time `json:"next_time_based_eligible,omitempty"`
	PriceOK               bool       `json:"price_ok"`
	TimeOK                bool       `json:"time_ok"`
	Config                ConfigBody `json:"config"`
}

// EligibilityResponse reports whether a mint would currently be allowed.
type EligibilityResponse struct {
	Eligible          bool      `json:"eligible"`
	Reason            string    `json:"reason"`
	CurrentPrice      string    `json:"current_price"`
	RecommendedAmount string    `json:"recommended_amount"`
	PriceOK           bool      `json:"price_ok"`
	TimeOK            bool      `json:"time_ok"`
	CheckedAt         time.Time `json:"checked_at"`
}

// MineRequest triggers one mint execution.
type MineRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
}

// MineResponse reports a settled mint.
type MineResponse struct {
	Recipient string    `json:"recipient"`
	PricePaid string    `json:"price_paid"`
	Epoch     uint64    `json:"epoch"`
	MintedAt  time.Time `json:"minted_at"`
}

// ConfigBody is the wire form of the mining configuration record.
type ConfigBody struct {
	MaxMiningPrice      string `json:"max_mining_price"`
	MinProfitMarginBps  uint64 `json:"min_profit_margin_bps"`
	MaxMintAmount       string `json:"max_mint_amount"`
	MinMintAmount       string `json:"min_mint_amount"`
	AutoMiningEnabled   bool   `json:"auto_mining_enabled"`
	CooldownSeconds     int64  `json:"cooldown_seconds"`
	MaxGasPrice         string `json:"max_gas_price"`
	TimeBasedMintSecs   int64  `json:"time_based_mint_period_seconds"`
}

// UpdateConfigRequest replaces the whole configuration record.
type UpdateConfigRequest struct {
	Caller string     `json:"caller"`
	Config ConfigBody `json:"config"`
}

// CallerRequest is the body of operations that need only an authorized
// caller: emergency stop, role administration.
type CallerRequest struct {
	Caller string `json:"caller"`
}

// UpdateRigRequest hot-swaps the target rig.
type UpdateRigRequest struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
}

// WithdrawRequest moves custody funds to the owner-designated address.
// Amount empty or "0" withdraws everything available.
type WithdrawRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Token  string `json:"token,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount,omitempty"`
}

// WithdrawResponse reports the amount actually withdrawn.
type WithdrawResponse struct {
	Asset     string `json:"asset"`
	To        string `json:"to"`
	Withdrawn string `json:"withdrawn"`
}

// EventBody is one controller event in the events feed.
type EventBody struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	At     time.Time              `json:"at"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// EventsResponse lists recent controller events, newest first.
type EventsResponse struct {
	Events []EventBody `json:"events"`
}
