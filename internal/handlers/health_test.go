package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatecrm/internal/monitoring"
)

func TestHealthReportsProbeOutcome(t *testing.T) {
	up := monitoring.NewCheck("database", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
	down := monitoring.NewCheck("database", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "refused"}
	})

	c, recorder := newTestContext("", http.MethodGet, "/health", nil)
	Health(monitoring.NewHealth(up))(c)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"status":"up"`)

	c, recorder = newTestContext("", http.MethodGet, "/health", nil)
	Health(monitoring.NewHealth(down))(c)
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Contains(t, recorder.Body.String(), "refused")
}
