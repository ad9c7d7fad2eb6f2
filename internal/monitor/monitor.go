// Package monitor implements the off-chain polling loop: it periodically
// asks the custodian API whether a mint is allowed and triggers one when
// it is. Retry policy lives here, not in the controller — the cooldown
// guard naturally rate-limits repeated attempts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log"

	"github.com/rigwatch/custodian/internal/config"
	"github.com/rigwatch/custodian/internal/models"
	"github.com/rigwatch/custodian/pkg/client"
)

var log = logging.Logger("monitor")

// Monitor drives the controller through its HTTP API.
type Monitor struct {
	client   *client.Client
	interval time.Duration
	caller   string
	request  models.MineRequest
}

// New builds a monitor from the service configuration.
func New(cfg config.MonitorConfig) (*Monitor, error) {
	if cfg.Caller == "" {
		return nil, fmt.Errorf("monitor caller (manager address) not set")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("monitor interval must be positive")
	}

	c, err := client.New(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	return &Monitor{
		client:   c,
		interval: cfg.Interval,
		caller:   cfg.Caller,
		request: models.MineRequest{
			Caller:    cfg.Caller,
			Recipient: cfg.Recipient,
			Metadata:  cfg.Metadata,
		},
	}, nil
}

// Run polls until the context is canceled. It returns early only on
// permanent errors: authorization or validation failures mean the
// deployment is misconfigured and an operator has to intervene.
func (m *Monitor) Run(ctx context.Context) error {
	log.Infow("monitor started", "interval", m.interval.String(), "caller", m.caller)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			log.Infow("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) tick(ctx context.Context) error {
	elig, err := m.client.Eligibility(ctx)
	if err != nil {
		// transport hiccups and server errors: try again next tick
		log.Warnw("eligibility poll failed", "error", err)
		return nil
	}
	if !elig.Eligible {
		log.Debugw("not eligible",
			"price", elig.CurrentPrice,
			"price_ok", elig.PriceOK,
			"time_ok", elig.TimeOK)
		return nil
	}

	log.Infow("mint eligible, executing",
		"reason", elig.Reason,
		"price", elig.CurrentPrice,
		"recommended_amount", elig.RecommendedAmount)

	res, err := m.client.Mine(ctx, m.request)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			log.Errorw("permanent mint failure, stopping", "error", err)
			return fmt.Errorf("mint rejected permanently: %w", err)
		}
		// guard failures and rig rejections resolve themselves; the next
		// poll re-evaluates from fresh state
		log.Warnw("mint attempt failed, will retry", "error", err)
		return nil
	}

	log.Infow("mint settled",
		"recipient", res.Recipient,
		"price_paid", res.PricePaid,
		"epoch", res.Epoch)
	return nil
}
