package checks

import (
	"context"
	"fmt"

	"github.com/charlesng35/estatecrm/internal/monitoring"
)

// ConnectionCounter is implemented by the notification hub.
type ConnectionCounter interface {
	Connections() int
}

// Realtime reports the number of live notification streams. It never fails the report.
func Realtime(counter ConnectionCounter) monitoring.Check {
	check := monitoring.NewCheck("realtime", func(ctx context.Context) monitoring.ProbeResult {
		if counter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "notification hub unavailable"}
		}
		return monitoring.ProbeResult{
			Status:  monitoring.StatusUp,
			Details: fmt.Sprintf("%d connections", counter.Connections()),
		}
	})
	check.Optional = true
	return check
}
