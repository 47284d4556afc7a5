package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatecrm/internal/monitoring"
)

func TestHealthEvaluate(t *testing.T) {
	health := monitoring.NewHealth(
		monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusUp}
		}),
		monitoring.NewCheck("", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusDown}
		}),
	)

	report := health.Evaluate(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Len(t, report.Checks, 1)
	require.Equal(t, "database", report.Checks[0].Component)
}

func TestHealthOptionalChecksOnlyDegrade(t *testing.T) {
	optional := monitoring.NewCheck("realtime", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "hub stopped"}
	})
	optional.Optional = true

	health := monitoring.NewHealth(optional)
	report := health.Evaluate(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Equal(t, monitoring.StatusDown, report.Checks[0].Status)

	health.Register(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown}
	}))
	report = health.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestHealthRecoversPanickingChecks(t *testing.T) {
	health := monitoring.NewHealth(
		monitoring.NewCheck("broken", func(ctx context.Context) monitoring.ProbeResult {
			panic("boom")
		}),
		monitoring.NewCheck("silent", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{}
		}),
		monitoring.NewCheck("missing", nil),
	)

	report := health.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Len(t, report.Checks, 3)
	require.Equal(t, "boom", report.Checks[0].Details)
	require.Equal(t, "broken", report.Checks[0].Component)
	require.Equal(t, monitoring.StatusDown, report.Checks[1].Status)
	require.Equal(t, "probe not implemented", report.Checks[2].Details)
}

func TestNilHealthIsUp(t *testing.T) {
	var health *monitoring.Health
	report := health.Evaluate(context.Background())
	require.True(t, report.Success)
	require.Empty(t, report.Checks)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Millisecond).Status)

	down := monitoring.ResultFromError("db", errors.New("refused"), -time.Second)
	require.Equal(t, monitoring.StatusDown, down.Status)
	require.Equal(t, "refused", down.Details)
	require.Zero(t, down.Duration)

	slow := monitoring.ResultFromError("db", context.DeadlineExceeded, time.Second)
	require.Equal(t, monitoring.StatusDegraded, slow.Status)
}
