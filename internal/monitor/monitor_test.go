package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rigwatch/custodian/internal/config"
	"github.com/rigwatch/custodian/internal/models"
)

const caller = "0x00000000000000000000000000000000000000bb"

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.MonitorConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg: config.MonitorConfig{
				Caller:    caller,
				Interval:  time.Second,
				ServerURL: "http://localhost:8080",
			},
		},
		{
			name: "missing caller",
			cfg: config.MonitorConfig{
				Interval:  time.Second,
				ServerURL: "http://localhost:8080",
			},
			wantErr: true,
		},
		{
			name: "non-positive interval",
			cfg: config.MonitorConfig{
				Caller:    caller,
				ServerURL: "http://localhost:8080",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// A permanent rejection (authorization) must stop the loop with an error;
// the deployment is misconfigured and retrying cannot fix it.
func TestRunStopsOnPermanentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/eligibility":
			_ = json.NewEncoder(w).Encode(models.EligibilityResponse{
				Eligible:          true,
				Reason:            "price",
				CurrentPrice:      "500",
				RecommendedAmount: "100",
				PriceOK:           true,
			})
		case "/api/v1/mine":
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{
				Error: "unauthorized", Message: "not a manager", Code: 403,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m, err := New(config.MonitorConfig{
		Caller:    caller,
		Interval:  10 * time.Millisecond,
		ServerURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Run(ctx); err == nil {
		t.Error("Run() returned nil, want permanent error")
	}
}

// Guard failures are retried: the loop keeps polling until canceled.
func TestRunRetriesGuardFailures(t *testing.T) {
	var mints atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/eligibility":
			_ = json.NewEncoder(w).Encode(models.EligibilityResponse{
				Eligible: true,
				Reason:   "price",
				PriceOK:  true,
			})
		case "/api/v1/mine":
			mints.Add(1)
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{
				Error: "guard_failure", Message: "cooldown active", Code: 409,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m, err := New(config.MonitorConfig{
		Caller:    caller,
		Interval:  10 * time.Millisecond,
		ServerURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want clean stop on cancel", err)
	}
	if mints.Load() < 2 {
		t.Errorf("mint attempted %d times, want at least 2 (retried)", mints.Load())
	}
}

// A mint that settles does not stop the loop; the next poll continues.
func TestRunMintsWhenEligible(t *testing.T) {
	var mints atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/eligibility":
			// eligible only on the first poll
			_ = json.NewEncoder(w).Encode(models.EligibilityResponse{
				Eligible: mints.Load() == 0,
				Reason:   "price",
				PriceOK:  true,
			})
		case "/api/v1/mine":
			var req models.MineRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Caller != caller {
				t.Errorf("mine caller = %s, want %s", req.Caller, caller)
			}
			mints.Add(1)
			_ = json.NewEncoder(w).Encode(models.MineResponse{
				Recipient: req.Caller,
				PricePaid: "500",
				Epoch:     1,
				MintedAt:  time.Now().UTC(),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m, err := New(config.MonitorConfig{
		Caller:    caller,
		Interval:  10 * time.Millisecond,
		ServerURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want clean stop on cancel", err)
	}
	if mints.Load() != 1 {
		t.Errorf("mint executed %d times, want exactly 1", mints.Load())
	}
}
