package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"claimsledger/internal/config"
	"claimsledger/internal/testutil"
)

type stubLedger struct {
	status LedgerStatus
}

func (s stubLedger) Status() LedgerStatus { return s.status }

func TestHealthServiceReadiness(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	ready := writeArtifacts(t)
	missing, err := config.NewPaths(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		paths  *config.Paths
		ledger LedgerStatusProvider
		want   string
	}{
		{"loaded ledger", ready, stubLedger{LedgerStatus{Loaded: true, Operators: 3}}, "ready"},
		{"ledger failed", ready, stubLedger{LedgerStatus{Error: "boom"}}, "not_ready"},
		{"no ledger", ready, nil, "not_ready"},
		{"no output directory", missing, stubLedger{LedgerStatus{Loaded: true}}, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := NewHealthService("test", tt.paths, tt.ledger, logger)
			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Contains(t, status.Services, "ledger")
			assert.Contains(t, status.Services, "data")
		})
	}
}

func TestHealthServiceHealthCheck(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService("1.2.3", nil, stubLedger{LedgerStatus{Loaded: true}}, logger)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, LedgerStatus{Loaded: true}, status.Services["ledger"])

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	assert.Equal(t, "1.2.3", hs.Version()["version"])
}
