package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check encapsulates a single dependency probe. A failing optional check only degrades
// the report; a failing critical check takes it down.
type Check struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) ProbeResult
}

// NewCheck constructs a critical health check with the provided name and function.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// Health runs the registered checks in registration order.
type Health struct {
	checks []Check
}

// NewHealth constructs a Health with the supplied checks.
func NewHealth(checks ...Check) *Health {
	h := &Health{}
	for _, check := range checks {
		h.Register(check)
	}
	return h
}

// Register appends a check. Checks without a name are ignored.
func (h *Health) Register(check Check) {
	if check.Name == "" || check.Run == nil {
		return
	}
	h.checks = append(h.checks, check)
}

// Evaluate executes every check and folds their statuses into one report.
func (h *Health) Evaluate(ctx context.Context) HealthReport {
	report := HealthReport{Success: true, Status: StatusUp, Checks: []ProbeResult{}}
	if h == nil {
		return report
	}

	for _, check := range h.checks {
		result := runCheck(ctx, check)
		report.Checks = append(report.Checks, result)

		status := result.Status
		if check.Optional && status == StatusDown {
			status = StatusDegraded
		}
		report.Status = worst(report.Status, status)
	}
	report.Success = report.Status != StatusDown
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()

	return check.Run(ctx)
}

func worst(current, candidate ProbeStatus) ProbeStatus {
	if current == StatusDown || candidate == StatusDown {
		return StatusDown
	}
	if current == StatusDegraded || candidate == StatusDegraded {
		return StatusDegraded
	}
	return StatusUp
}

// ResultFromError converts an error into a ProbeResult. Timeouts degrade rather than fail.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}

	return ProbeResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
