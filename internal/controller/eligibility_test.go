package controller

import (
	"context"
	"testing"
	"time"
)

func TestCheckEligibilityPriceBased(t *testing.T) {
	// price under the ceiling, time window not yet elapsed
	f := newFixture(t, defaultConfig(), 500, 10_000)
	ctx := context.Background()

	if _, err := f.ctrl.ExecuteMine(ctx, manager, recipient, ""); err != nil {
		t.Fatalf("ExecuteMine() error = %v", err)
	}
	f.clock.Advance(10 * time.Minute) // past cooldown, inside time window

	got, err := f.ctrl.CheckEligibility(ctx)
	if err != nil {
		t.Fatalf("CheckEligibility() error = %v", err)
	}
	if !got.Eligible || got.Reason != ReasonPrice {
		t.Errorf("eligibility = %v/%s, want true/price", got.Eligible, got.Reason)
	}
	if !got.PriceOK || got.TimeOK {
		t.Errorf("priceOK/timeOK = %v/%v, want true/false", got.PriceOK, got.TimeOK)
	}
	if got.RecommendedAmount.Int64() != 100 {
		t.Errorf("RecommendedAmount = %s, want MaxMintAmount 100", got.RecommendedAmount)
	}
}

func TestCheckEligibilityTimeBased(t *testing.T) {
	f := newFixture(t, defaultConfig(), 500, 10_000)
	ctx := context.Background()

	if _, err := f.ctrl.ExecuteMine(ctx, manager, recipient, ""); err != nil {
		t.Fatalf("ExecuteMine() error = %v", err)
	}
	f.rig.setPrice(5000) // above the 1000 ceiling
	f.clock.Advance(time.Hour + time.Second)

	got, err := f.ctrl.CheckEligibility(ctx)
	if err != nil {
		t.Fatalf("CheckEligibility() error = %v", err)
	}
	if !got.Eligible || got.Reason != ReasonTime {
		t.Errorf("eligibility = %v/%s, want true/time", got.Eligible, got.Reason)
	}
	if got.PriceOK || !got.TimeOK {
		t.Errorf("priceOK/timeOK = %v/%v, want false/true", got.PriceOK, got.TimeOK)
	}
}

func TestCheckEligibilityPriceWinsTieBreak(t *testing.T) {
	// both conditions hold: no mint yet (time trivially ok) and price low
	f := newFixture(t, defaultConfig(), 500, 10_000)

	got, err := f.ctrl.CheckEligibility(context.Background())
	if err != nil {
		t.Fatalf("CheckEligibility() error = %v", err)
	}
	if !got.PriceOK || !got.TimeOK {
		t.Fatalf("priceOK/timeOK = %v/%v, want both true", got.PriceOK, got.TimeOK)
	}
	if got.Reason != ReasonPrice {
		t.Errorf("Reason = %s, want price (price-based takes priority)", got.Reason)
	}
}

func TestCheckEligibilityIneligible(t *testing.T) {
	f := newFixture(t, defaultConfig(), 500, 10_000)
	ctx := context.Background()

	if _, err := f.ctrl.ExecuteMine(ctx, manager, recipient, ""); err != nil {
		t.Fatalf("ExecuteMine() error = %v", err)
	}
	f.rig.setPrice(5000)
	f.clock.Advance(10 * time.Minute) // inside the time window

	got, err := f.ctrl.CheckEligibility(ctx)
	if err != nil {
		t.Fatalf("CheckEligibility() error = %v", err)
	}
	if got.Eligible || got.Reason != ReasonNone {
		t.Errorf("eligibility = %v/%s, want false/none", got.Eligible, got.Reason)
	}
	if got.RecommendedAmount.Sign() != 0 {
		t.Errorf("RecommendedAmount = %s, want 0 when ineligible", got.RecommendedAmount)
	}
}

func TestStatusReport(t *testing.T) {
	f := newFixture(t, defaultConfig(), 500, 10_000)
	ctx := context.Background()

	before, err := f.ctrl.StatusReport(ctx)
	if err != nil {
		t.Fatalf("StatusReport() error = %v", err)
	}
	if !before.Enabled || before.CurrentPrice.Int64() != 500 || before.Epoch != 1 {
		t.Errorf("status = enabled %v, price %s, epoch %d", before.Enabled, before.CurrentPrice, before.Epoch)
	}
	if before.TokenBalance.Int64() != 10_000 {
		t.Errorf("TokenBalance = %s, want 10000", before.TokenBalance)
	}
	if !before.LastMint.IsZero() || !before.NextCooldownEligible.IsZero() {
		t.Error("fresh controller should have zero mint timestamps")
	}
	if before.Phase != PhaseIdle {
		t.Errorf("Phase = %s, want idle", before.Phase)
	}

	if _, err := f.ctrl.ExecuteMine(ctx, manager, recipient, ""); err != nil {
		t.Fatalf("ExecuteMine() error = %v", err)
	}

	after, err := f.ctrl.StatusReport(ctx)
	if err != nil {
		t.Fatalf("StatusReport() error = %v", err)
	}
	mintedAt := f.clock.Now()
	if !after.LastMint.Equal(mintedAt) {
		t.Errorf("LastMint = %s, want %s", after.LastMint, mintedAt)
	}
	if want := mintedAt.Add(300 * time.Second); !after.NextCooldownEligible.Equal(want) {
		t.Errorf("NextCooldownEligible = %s, want %s", after.NextCooldownEligible, want)
	}
	if want := mintedAt.Add(time.Hour); !after.NextTimeBasedEligible.Equal(want) {
		t.Errorf("NextTimeBasedEligible = %s, want %s", after.NextTimeBasedEligible, want)
	}
	if after.Epoch != 2 {
		t.Errorf("Epoch = %d, want 2 after one purchase", after.Epoch)
	}
	if after.TokenBalance.Int64() != 9_500 {
		t.Errorf("TokenBalance = %s, want 9500 after paying 500", after.TokenBalance)
	}
}
